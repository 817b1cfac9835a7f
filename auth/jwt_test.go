package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "s3cret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/epoch", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("disabled config: Validate() = %v", err)
	}
	if err := (Config{Enabled: true}).Validate(); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Validate() = %v, want ErrMissingSecret", err)
	}
	if _, err := NewJWTAuthenticator(Config{}); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewJWTAuthenticator() = %v, want ErrMissingSecret", err)
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a, err := NewJWTAuthenticator(Config{Secret: testSecret, Issuer: "paperless", Audience: "artifactcache"})
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	now := time.Now()
	valid := jwt.MapClaims{
		"sub":   "worker-1",
		"iss":   "paperless",
		"aud":   "artifactcache",
		"roles": []any{"reader", "admin"},
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	with := func(k string, v any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, val := range valid {
			c[key] = val
		}
		c[k] = v
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", signToken(t, testSecret, valid), nil},
		{"missing header", "", ErrMissingCredentials},
		{"garbage", "not.a.token", ErrTokenMalformed},
		{"wrong secret", signToken(t, "other", valid), ErrInvalidCredentials},
		{"expired", signToken(t, testSecret, with("exp", now.Add(-time.Minute).Unix())), ErrTokenExpired},
		{"wrong issuer", signToken(t, testSecret, with("iss", "someone-else")), ErrInvalidCredentials},
		{"wrong audience", signToken(t, testSecret, with("aud", "other-service")), ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := a.Authenticate(bearerRequest(tt.token))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if id.Principal != "worker-1" {
				t.Errorf("Principal = %q, want worker-1", id.Principal)
			}
			if !id.HasRole("admin") || id.HasRole("owner") {
				t.Errorf("Roles = %v", id.Roles)
			}
			if id.ExpiresAt.IsZero() || id.IssuedAt.IsZero() {
				t.Errorf("timestamps not extracted: exp=%v iat=%v", id.ExpiresAt, id.IssuedAt)
			}
		})
	}
}

func TestJWTAuthenticator_RejectsUnsignedToken(t *testing.T) {
	a, err := NewJWTAuthenticator(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := a.Authenticate(bearerRequest(unsigned)); err == nil {
		t.Fatal("Authenticate() accepted an unsigned token")
	}
}
