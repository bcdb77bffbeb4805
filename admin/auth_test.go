package admin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("s3cret-for-tests")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return "Bearer " + s
}

func adminClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "ops@example.com",
		"iss":   "breaker",
		"roles": []any{"viewer", DefaultRole},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewTokenGuard_NoSecret(t *testing.T) {
	if g := NewTokenGuard(TokenConfig{}); g != nil {
		t.Fatal("guard without a secret should be nil")
	}
	var g *TokenGuard
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("nil guard blocked the request: %d", rec.Code)
	}
}

func TestTokenGuard_Authenticate(t *testing.T) {
	g := NewTokenGuard(TokenConfig{Secret: testSecret, Issuer: "breaker"})

	expired := adminClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := adminClaims()
	wrongIssuer["iss"] = "someone-else"
	noRole := adminClaims()
	noRole["roles"] = []any{"viewer"}
	spaced := adminClaims()
	spaced["roles"] = "viewer " + DefaultRole

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"valid", signToken(t, testSecret, adminClaims()), nil},
		{"roles as string", signToken(t, testSecret, spaced), nil},
		{"missing", "", ErrMissingCredentials},
		{"not bearer", "Basic abc", ErrMissingCredentials},
		{"wrong secret", signToken(t, []byte("other"), adminClaims()), ErrInvalidCredentials},
		{"garbage", "Bearer not.a.token", ErrInvalidCredentials},
		{"expired", signToken(t, testSecret, expired), ErrTokenExpired},
		{"wrong issuer", signToken(t, testSecret, wrongIssuer), ErrInvalidCredentials},
		{"no admin role", signToken(t, testSecret, noRole), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := g.Authenticate(tt.header)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.want)
			}
			if tt.want == nil && id.Principal != "ops@example.com" {
				t.Errorf("Principal = %q", id.Principal)
			}
		})
	}
}

func TestTokenGuard_RejectsNoneAlgorithm(t *testing.T) {
	g := NewTokenGuard(TokenConfig{Secret: testSecret})
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, adminClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	if _, err := g.Authenticate("Bearer " + s); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(alg=none) error = %v", err)
	}
}

func TestTokenGuard_Middleware(t *testing.T) {
	g := NewTokenGuard(TokenConfig{Secret: testSecret})
	var principal string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFromContext(r.Context()); id != nil {
			principal = id.Principal
		}
		w.WriteHeader(http.StatusOK)
	})
	h := g.Middleware(next)

	noRole := adminClaims()
	noRole["roles"] = []any{}
	tests := []struct {
		header string
		code   int
	}{
		{"", http.StatusUnauthorized},
		{signToken(t, testSecret, noRole), http.StatusForbidden},
		{signToken(t, testSecret, adminClaims()), http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/circuits", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("code = %d, want %d", rec.Code, tt.code)
		}
	}
	if principal != "ops@example.com" {
		t.Errorf("principal = %q", principal)
	}
}
