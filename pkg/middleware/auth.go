package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weiawesome/wes-io-chat/pkg/jwt"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	TokenQueryKey = "token"
)

// ErrInvalidSubject is returned for tokens whose user id is not a UUID.
var ErrInvalidSubject = errors.New("token subject is not a user id")

// TokenVerifier validates an access token. *jwt.Manager satisfies it.
type TokenVerifier interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates access tokens locally.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// TokenFromRequest returns the bearer token, or the ?token= query parameter
// for browser websocket clients that cannot set headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return r.URL.Query().Get(TokenQueryKey)
}

// Authenticate resolves the caller's claims from the request. The user id
// is rewritten to its canonical lowercase UUID form.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*jwt.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, jwt.ErrInvalidToken
	}
	claims, err := m.verifier.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	userID, err := CanonicalUserID(claims.UserID)
	if err != nil {
		return nil, err
	}
	claims.UserID = userID
	return claims, nil
}

// CanonicalUserID parses id as a UUID in any accepted spelling and returns
// its lowercase hyphenated form.
func CanonicalUserID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidSubject
	}
	return u.String(), nil
}

// RequireAuth returns a Gin middleware that validates JWT tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)

		c.Next()
	}
}

type userCtxKey struct{}

// RequireAuthHTTP is the net/http counterpart of RequireAuth.
func (m *AuthMiddleware) RequireAuthHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"` + err.Error() + `"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

// UserIDFromContext returns the id stored by RequireAuthHTTP.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userCtxKey{}).(string)
	return id
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		return username.(string)
	}
	return ""
}
