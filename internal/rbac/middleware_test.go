package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"phonebook/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithRole(role string, mw gin.HandlerFunc) int {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", "", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if code := serveWithRole(RoleAdmin, RequireAnyRole(RoleStaff)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_StaffForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if code := serveWithRole(RoleStaff, RequireAdmin()); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingRoleUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if code := serveWithRole("", RequireAnyRole(RoleStaff)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
