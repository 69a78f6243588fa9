// This file implements request authentication. A bearer token is verified by
// the configured Authenticator; in development mode a trusted X-User-ID
// header may stand in for it. On success the user id is stored under
// "userID" (read by handlers, the rate limiter and idempotency) and the
// account is provisioned through the optional Provision hook.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/auth"
)

const (
	// HeaderUserID carries a trusted identity when header auth is enabled.
	HeaderUserID = "X-User-ID"

	ctxKeyUserID   = "userID"
	ctxKeyIdentity = "identity"
)

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(token string) (*auth.UserIdentity, error)
}

// AuthOptions configures Auth.
//
// HeaderIdentity accepts X-User-ID without a token; only for local setups.
// Provision, when set, is called once per request with the verified identity
// (typically the ledger's EnsureUser) and a failure aborts with 500.
// Optional lets unidentified callers through anonymously; UserID is then "".
type AuthOptions struct {
	HeaderIdentity bool
	Optional       bool
	Provision      func(ctx context.Context, id auth.UserIdentity) error
}

// Auth returns the authentication middleware. Missing or invalid credentials
// yield 401 in the standard error envelope unless opts.Optional is set.
func Auth(verifier Authenticator, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identify(c, verifier, opts.HeaderIdentity)
		if !ok && opts.Optional {
			c.Next()
			return
		}
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "unauthenticated",
				"message":    "authentication required",
			})
			return
		}

		if opts.Provision != nil {
			if err := opts.Provision(c.Request.Context(), *id); err != nil {
				LoggerFrom(c).Error().Err(err).Str("user_id", id.ID).Msg("provision user")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": RequestIDFrom(c),
					"code":       "internal_error",
					"message":    "internal server error",
				})
				return
			}
		}

		c.Set(ctxKeyUserID, id.ID)
		c.Set(ctxKeyIdentity, id)
		c.Next()
	}
}

func identify(c *gin.Context, verifier Authenticator, headerIdentity bool) (*auth.UserIdentity, bool) {
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" && verifier != nil {
		id, err := verifier.Authenticate(authz)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			return nil, false
		}
		return id, true
	}
	if headerIdentity {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			return &auth.UserIdentity{ID: uid}, true
		}
	}
	return nil, false
}

// UserID returns the authenticated user id, or "" before Auth ran.
func UserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// Identity returns the verified identity stored by Auth.
func Identity(c *gin.Context) (*auth.UserIdentity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.UserIdentity)
	return id, ok
}
