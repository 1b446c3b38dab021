/*
auth.go - Bearer-token identity

PURPOSE:
  Turns the Authorization header into a generic.Identity on the request
  context. Tokens are HS256 JWTs issued by the identity provider with the
  shared secret; the subject is the user id.

CLAIMS:
  sub    user id (required)
  name   display name captured on new records
  admin  grants the /api/admin routes

SEE ALSO:
  - server.go: Where the middleware is mounted
  - cmd/cyclectl: "token" command for local testing
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/staff-hours/generic"
)

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

// TokenVerifier validates bearer tokens against the shared secret.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses a token and returns the identity it carries.
func (v *TokenVerifier) Verify(token string) (generic.Identity, error) {
	if token == "" {
		return generic.Identity{}, errors.New("token is empty")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return generic.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return generic.Identity{}, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return generic.Identity{}, errors.New("token has no subject")
	}

	return generic.Identity{
		UserID:      generic.UserID(claims.Subject),
		DisplayName: claims.Name,
		IsAdmin:     claims.Admin,
	}, nil
}

// IssueToken signs a token for identity. The server never issues tokens;
// this exists for the CLI and tests.
func IssueToken(secret, issuer string, identity generic.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(identity.UserID),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  identity.DisplayName,
		Admin: identity.IsAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type identityKey struct{}

// WithIdentity returns ctx carrying identity.
func WithIdentity(ctx context.Context, identity generic.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity placed by Authenticate.
func IdentityFrom(ctx context.Context) (generic.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(generic.Identity)
	return identity, ok
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(v *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := v.Verify(bearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin allows only identities with the admin claim.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok || !identity.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin permission required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
