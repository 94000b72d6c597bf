package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/be4breach/internal/security"
	"github.com/hitoshi/be4breach/internal/site"
)

type mockContactRecorder struct {
	count int
}

func (m *mockContactRecorder) RecordContactSubmission() {
	m.count++
}

func TestContentHandler_PublicEndpoints(t *testing.T) {
	h := NewContentHandler(security.NewContactSanitizer(), nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"info", h.Info, `"name":"Be4Breach"`},
		{"services", h.Services, `"id":"ai-security"`},
		{"about", h.About, "Pune, India"},
		{"contact", h.Contact, site.ContactEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/api/"+tt.name, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body %s should contain %s", w.Body.String(), tt.want)
			}
		})
	}
}

func TestContentHandler_SubmitContact_Accepted(t *testing.T) {
	rec := &mockContactRecorder{}
	h := NewContentHandler(security.NewContactSanitizer(), rec)

	w := httptest.NewRecorder()
	h.SubmitContact(w, postJSON("/api/v1/contact",
		`{"name":"Alice","email":"alice@example.com","company":"Acme","message":"Please contact us about a red team engagement."}`))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusAccepted, w.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["status"] != "received" {
		t.Errorf("status = %q, want received", body["status"])
	}
	if rec.count != 1 {
		t.Errorf("recorded submissions = %d, want 1", rec.count)
	}
}

func TestContentHandler_SubmitContact_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `not json`},
		{"short name", `{"name":"A","email":"a@example.com","message":"long enough message"}`},
		{"invalid email", `{"name":"Alice","email":"alice","message":"long enough message"}`},
		{"short message", `{"name":"Alice","email":"a@example.com","message":"hi"}`},
		{"markup only message", `{"name":"Alice","email":"a@example.com","message":"<script>alert('x')</script>"}`},
		{"long message", `{"name":"Alice","email":"a@example.com","message":"` + strings.Repeat("m", 2001) + `"}`},
		{"long company", `{"name":"Alice","email":"a@example.com","company":"` + strings.Repeat("c", 121) + `","message":"long enough message"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockContactRecorder{}
			h := NewContentHandler(security.NewContactSanitizer(), rec)

			w := httptest.NewRecorder()
			h.SubmitContact(w, postJSON("/api/v1/contact", tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if rec.count != 0 {
				t.Error("rejected submissions should not be recorded")
			}
		})
	}
}

func TestContentHandler_SubmitContact_OversizedBody_Returns400(t *testing.T) {
	h := NewContentHandler(security.NewContactSanitizer(), nil)

	body := `{"name":"Alice","email":"a@example.com","message":"` + strings.Repeat("m", maxRequestBodyBytes) + `"}`
	w := httptest.NewRecorder()
	h.SubmitContact(w, postJSON("/api/v1/contact", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
