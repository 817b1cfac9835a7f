package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// Config configures bearer-token authentication of the HTTP API.
type Config struct {
	// Enabled turns authentication on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Secret is the HMAC key tokens are signed with. Required when enabled.
	Secret string `yaml:"secret"`

	// Issuer, when set, must match the iss claim.
	Issuer string `yaml:"issuer"`

	// Audience, when set, must be listed in the aud claim.
	Audience string `yaml:"audience"`

	// PrincipalClaim names the claim holding the caller.
	// Default: "sub"
	PrincipalClaim string `yaml:"principal_claim"`

	// RolesClaim names the claim holding the caller's roles.
	// Default: "roles"
	RolesClaim string `yaml:"roles_claim"`

	// InvalidateRole, when set, is required to delete cache entries.
	InvalidateRole string `yaml:"invalidate_role"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Enabled && c.Secret == "" {
		return ErrMissingSecret
	}
	return nil
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	config Config
	parser *jwt.Parser
}

// NewJWTAuthenticator creates an authenticator from config.
func NewJWTAuthenticator(config Config) (*JWTAuthenticator, error) {
	if config.Secret == "" {
		return nil, ErrMissingSecret
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{config: config, parser: jwt.NewParser(opts...)}, nil
}

// Authenticate validates the request's bearer token.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, ErrMissingCredentials
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(a.config.Secret), nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrInvalidCredentials
	}

	return a.identity(claims), nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Claims: map[string]any(claims)}

	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		id.Principal = principal
	}
	if roles, ok := claims[a.config.RolesClaim].([]any); ok {
		id.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}
