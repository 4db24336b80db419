package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"phonebook/internal/respond"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies a staff access token and injects identity into
// the request context. Role checks belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			respond.Abort(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			respond.Abort(c, http.StatusUnauthorized, "Not authorized")
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Name, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireBasic checks HTTP Basic credentials against one static pair.
// Both fields are compared in constant time.
func RequireBasic(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, p, ok := c.Request.BasicAuth()
		if !ok || !BasicMatches(u, p, username, password) {
			c.Header("WWW-Authenticate", `Basic realm="incoming_call"`)
			respond.Abort(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		c.Next()
	}
}

func BasicMatches(gotUser, gotPass, wantUser, wantPass string) bool {
	if wantUser == "" || wantPass == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(gotPass), []byte(wantPass)) == 1
	return userOK && passOK
}
