package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/be4breach/internal/model"
)

// fixedClock はテスト用の差し替え可能な時計。
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func newTestCodec(t *testing.T, clock *fixedClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{
		Secret:    "test-secret-key",
		Algorithm: "HS256",
		TTL:       time.Hour,
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func TestNewTokenCodec_EmptySecret_ReturnsConfigError(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{Secret: "", TTL: time.Hour})
	if !errors.Is(err, model.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestNewTokenCodec_UnsupportedAlgorithm_ReturnsConfigError(t *testing.T) {
	tests := []string{"RS256", "none", "ES256", "HS1"}
	for _, alg := range tests {
		t.Run(alg, func(t *testing.T) {
			_, err := NewTokenCodec(TokenConfig{Secret: "s", Algorithm: alg, TTL: time.Hour})
			if !errors.Is(err, model.ErrConfig) {
				t.Errorf("expected ErrConfig for %q, got %v", alg, err)
			}
		})
	}
}

func TestNewTokenCodec_DefaultsToHS256(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{Secret: "s", TTL: time.Minute})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codec.method.Alg() != "HS256" {
		t.Errorf("Alg() = %q, want HS256", codec.method.Alg())
	}
}

func TestNewTokenCodec_NonPositiveTTL_ReturnsConfigError(t *testing.T) {
	_, err := NewTokenCodec(TokenConfig{Secret: "s", TTL: 0})
	if !errors.Is(err, model.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestTokenCodec_IssueDecode_RoundTrip(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)}
	codec := newTestCodec(t, clock)

	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			token, issued, err := codec.Issue("alice@example.com", role)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if strings.Count(token, ".") != 2 {
				t.Errorf("token is not a compact JWT: %q", token)
			}

			wantIat := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			if !issued.IssuedAt.Equal(wantIat) {
				t.Errorf("IssuedAt = %v, want %v", issued.IssuedAt, wantIat)
			}
			if !issued.ExpiresAt.Equal(wantIat.Add(time.Hour)) {
				t.Errorf("ExpiresAt = %v, want iat+TTL", issued.ExpiresAt)
			}

			decoded, err := codec.Decode(token)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.Subject != "alice@example.com" || decoded.Role != role {
				t.Errorf("decoded = %+v, want subject alice@example.com role %s", decoded, role)
			}
			if !decoded.IssuedAt.Equal(issued.IssuedAt) || !decoded.ExpiresAt.Equal(issued.ExpiresAt) {
				t.Errorf("decoded times %v/%v differ from issued %v/%v",
					decoded.IssuedAt, decoded.ExpiresAt, issued.IssuedAt, issued.ExpiresAt)
			}
		})
	}
}

func TestTokenCodec_Decode_ExpiryBoundary(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: start}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue("bob@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// exp直前は有効
	clock.t = start.Add(time.Hour - time.Second)
	if _, err := codec.Decode(token); err != nil {
		t.Errorf("expected token valid 1s before exp, got %v", err)
	}

	// exp時刻ちょうどで無効（猶予なし）
	clock.t = start.Add(time.Hour)
	if _, err := codec.Decode(token); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken at exp, got %v", err)
	}

	clock.t = start.Add(2 * time.Hour)
	if _, err := codec.Decode(token); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after exp, got %v", err)
	}
}

func TestTokenCodec_Decode_TamperedOrForeignToken_ReturnsInvalidToken(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	codec := newTestCodec(t, clock)
	token, _, err := codec.Issue("carol@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other, err := NewTokenCodec(TokenConfig{Secret: "another-secret", TTL: time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	foreign, _, _ := other.Issue("carol@example.com", model.RoleAdmin)

	parts := strings.Split(token, ".")
	tamperedSig := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	// 別トークンのペイロード（role=admin）に元の署名を付け替える
	foreignParts := strings.Split(foreign, ".")
	swappedPayload := parts[0] + "." + foreignParts[1] + "." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"tampered signature", tamperedSig},
		{"swapped payload", swappedPayload},
		{"signed with other secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			if !errors.Is(err, model.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenCodec_Decode_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory@example.com",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
		Role: "admin",
	}

	// 同じ鍵でもHS512で署名されたトークンは受け付けない
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := codec.Decode(hs512); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for HS512 token, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := codec.Decode(none); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for alg=none token, got %v", err)
	}
}

func TestTokenCodec_Decode_MissingClaims_ReturnsInvalidToken(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	codec := newTestCodec(t, clock)
	exp := jwt.NewNumericDate(clock.t.Add(time.Hour))

	tests := []struct {
		name   string
		claims accessTokenClaims
	}{
		{"missing sub", accessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}, Role: "user"}},
		{"missing role", accessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a@example.com", ExpiresAt: exp}}},
		{"unknown role", accessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a@example.com", ExpiresAt: exp}, Role: "root"}},
		{"missing exp", accessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a@example.com"}, Role: "user"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte("test-secret-key"))
			if err != nil {
				t.Fatalf("sign error: %v", err)
			}
			if _, err := codec.Decode(signed); !errors.Is(err, model.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenCodec_Decode_ErrorMessageIsGeneric(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	_, errGarbage := codec.Decode("garbage")
	token, _, _ := codec.Issue("a@example.com", model.RoleUser)
	clock.t = clock.t.Add(2 * time.Hour)
	_, errExpired := codec.Decode(token)

	var a, b *model.APIError
	if !errors.As(errGarbage, &a) || !errors.As(errExpired, &b) {
		t.Fatalf("expected *model.APIError, got %T / %T", errGarbage, errExpired)
	}
	if a.Message != b.Message || a.Code != b.Code {
		t.Errorf("messages differ: %q vs %q", a.Message, b.Message)
	}
}

func TestTokenCodec_Issue_InvalidInput(t *testing.T) {
	codec := newTestCodec(t, &fixedClock{t: time.Now()})

	if _, _, err := codec.Issue("", model.RoleUser); err == nil {
		t.Error("expected error for empty subject")
	}
	if _, _, err := codec.Issue("a@example.com", model.Role("root")); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestTokenCodec_NilCodec_ReturnsConfigError(t *testing.T) {
	var codec *TokenCodec
	if _, _, err := codec.Issue("a@example.com", model.RoleUser); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Issue: expected ErrConfig, got %v", err)
	}
	if _, err := codec.Decode("x.y.z"); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Decode: expected ErrConfig, got %v", err)
	}
}

func TestSupportedAlgorithm(t *testing.T) {
	tests := map[string]bool{"HS256": true, "hs384": true, " HS512 ": true, "RS256": false, "": false}
	for alg, want := range tests {
		if got := SupportedAlgorithm(alg); got != want {
			t.Errorf("SupportedAlgorithm(%q) = %v, want %v", alg, got, want)
		}
	}
}
