package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/be4breach/internal/model"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

func newTokenInfoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Query().Get("id_token") == "" {
			t.Error("id_token query parameter is missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenInfoVerifier_Verify_Success(t *testing.T) {
	srv := newTokenInfoServer(t, http.StatusOK, `{
		"sub": "1234567890",
		"email": "Alice@Example.com",
		"email_verified": "true",
		"aud": "`+testClientID+`",
		"name": "Alice"
	}`)
	v := NewTokenInfoVerifier(srv.URL, time.Second)

	id, err := v.Verify(context.Background(), "assertion-value", testClientID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized alice@example.com", id.Email)
	}
	if !id.EmailVerified || id.Audience != testClientID || id.Name != "Alice" || id.Subject != "1234567890" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestTokenInfoVerifier_Verify_BooleanEmailVerifiedAndGivenName(t *testing.T) {
	srv := newTokenInfoServer(t, http.StatusOK,
		`{"email":"bob@example.com","email_verified":true,"aud":"`+testClientID+`","given_name":"Bob"}`)
	v := NewTokenInfoVerifier(srv.URL, time.Second)

	id, err := v.Verify(context.Background(), "assertion-value", testClientID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Name != "Bob" {
		t.Errorf("Name = %q, want given_name fallback Bob", id.Name)
	}
}

func TestTokenInfoVerifier_Verify_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"google rejects token", http.StatusBadRequest, `{"error":"invalid_token"}`, model.ErrInvalidAssertion},
		{"unverified email", http.StatusOK, `{"email":"a@example.com","email_verified":"false","aud":"` + testClientID + `"}`, model.ErrInvalidAssertion},
		{"missing email", http.StatusOK, `{"email_verified":"true","aud":"` + testClientID + `"}`, model.ErrInvalidAssertion},
		{"garbage email_verified", http.StatusOK, `{"email":"a@example.com","email_verified":"yes please","aud":"` + testClientID + `"}`, model.ErrInvalidAssertion},
		{"undecodable body", http.StatusOK, `<html>`, model.ErrInvalidAssertion},
		{"audience mismatch", http.StatusOK, `{"email":"a@example.com","email_verified":"true","aud":"other-client"}`, model.ErrAudienceMismatch},
		{"server error", http.StatusInternalServerError, `oops`, model.ErrUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, model.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenInfoServer(t, tt.status, tt.body)
			v := NewTokenInfoVerifier(srv.URL, time.Second)

			_, err := v.Verify(context.Background(), "assertion-value", testClientID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInfoVerifier_Verify_UnverifiedEmailCheckedBeforeAudience(t *testing.T) {
	srv := newTokenInfoServer(t, http.StatusOK, `{"email":"a@example.com","email_verified":"false","aud":"other-client"}`)
	v := NewTokenInfoVerifier(srv.URL, time.Second)

	_, err := v.Verify(context.Background(), "assertion-value", testClientID)
	if !errors.Is(err, model.ErrInvalidAssertion) {
		t.Errorf("expected ErrInvalidAssertion, got %v", err)
	}
}

func TestTokenInfoVerifier_Verify_EmptyExpectedAudienceSkipsCheck(t *testing.T) {
	srv := newTokenInfoServer(t, http.StatusOK, `{"email":"a@example.com","email_verified":"true","aud":"anything"}`)
	v := NewTokenInfoVerifier(srv.URL, time.Second)

	if _, err := v.Verify(context.Background(), "assertion-value", ""); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestTokenInfoVerifier_Verify_Timeout_ReturnsUpstreamUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	v := NewTokenInfoVerifier(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := v.Verify(context.Background(), "assertion-value", testClientID)
	if !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("verification did not respect timeout: %v", elapsed)
	}
}

func TestTokenInfoVerifier_Verify_ConnectionRefused_ReturnsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	v := NewTokenInfoVerifier(addr, time.Second)
	_, err := v.Verify(context.Background(), "assertion-value", testClientID)
	if !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestTokenInfoVerifier_Verify_EmptyAssertion(t *testing.T) {
	v := NewTokenInfoVerifier("http://127.0.0.1:1", time.Second)
	if _, err := v.Verify(context.Background(), "", testClientID); !errors.Is(err, model.ErrInvalidAssertion) {
		t.Errorf("expected ErrInvalidAssertion, got %v", err)
	}
}

func TestNewTokenInfoVerifier_Defaults(t *testing.T) {
	v := NewTokenInfoVerifier("", 0)
	if v.endpoint != DefaultTokenInfoURL {
		t.Errorf("endpoint = %q, want %q", v.endpoint, DefaultTokenInfoURL)
	}
	if v.client.Timeout != DefaultVerifyTimeout {
		t.Errorf("timeout = %v, want %v", v.client.Timeout, DefaultVerifyTimeout)
	}
}
