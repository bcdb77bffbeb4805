package admin

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRole is the role a token must carry to use the admin API.
const DefaultRole = "breaker-admin"

// TokenConfig configures bearer token checks.
type TokenConfig struct {
	// Secret is the HS256 signing key. An empty secret disables checks.
	Secret []byte

	// Issuer is the expected iss claim. Empty accepts any issuer.
	Issuer string

	// Role must appear in the token's roles claim.
	// Default: DefaultRole
	Role string
}

// Identity is the authenticated caller.
type Identity struct {
	Principal string
	Roles     []string
}

type identityKey struct{}

// IdentityFromContext returns the identity set by the token guard, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// TokenGuard authenticates admin requests with HS256 JWTs.
type TokenGuard struct {
	config TokenConfig
	parser *jwt.Parser
}

// NewTokenGuard creates a guard. It returns nil when no secret is configured.
func NewTokenGuard(config TokenConfig) *TokenGuard {
	if len(config.Secret) == 0 {
		return nil
	}
	if config.Role == "" {
		config.Role = DefaultRole
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	return &TokenGuard{config: config, parser: jwt.NewParser(opts...)}
}

// Authenticate validates the bearer token in header.
func (g *TokenGuard) Authenticate(header string) (*Identity, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := g.parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return g.config.Secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{Roles: rolesClaim(claims)}
	id.Principal, _ = claims.GetSubject()
	if !slices.Contains(id.Roles, g.config.Role) {
		return id, ErrForbidden
	}
	return id, nil
}

// Middleware rejects requests without a valid admin token. A nil guard
// lets every request through.
func (g *TokenGuard) Middleware(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r.Header.Get("Authorization"))
		switch {
		case errors.Is(err, ErrForbidden):
			writeError(w, http.StatusForbidden, err)
			return
		case err != nil:
			w.Header().Set("WWW-Authenticate", `Bearer realm="breaker-admin"`)
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func rolesClaim(claims jwt.MapClaims) []string {
	switch v := claims["roles"].(type) {
	case string:
		return strings.Fields(v)
	case []any:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}
