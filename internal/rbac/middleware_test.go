package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceagent-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, mw gin.HandlerFunc, userID, workspaceID, role string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" || workspaceID != "" || role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), userID, workspaceID, role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.GET("/t", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireWorkspace(t *testing.T) {
	if got := doRequest(t, RequireWorkspace(), "u", "ws-1", "owner"); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := doRequest(t, RequireWorkspace(), "u", "", "owner"); got != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", got)
	}
}

func TestRequireAnyRole(t *testing.T) {
	mw := RequireAnyRole(RoleOwner, RoleOperator)

	if got := doRequest(t, mw, "u", "ws-1", RoleOperator); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
	if got := doRequest(t, mw, "u", "ws-1", RoleAnalyst); got != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", got)
	}
	// super_admin bypasses all checks
	if got := doRequest(t, mw, "u", "ws-1", RoleSuperAdmin); got != http.StatusOK {
		t.Fatalf("expected 200, got %d", got)
	}
	// hidden role denied unless explicitly allowed
	if got := doRequest(t, mw, "u", "ws-1", RoleComplianceOfficer); got != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", got)
	}
	if got := doRequest(t, RequireAnyRole(RoleComplianceOfficer), "u", "ws-1", RoleComplianceOfficer); got != http.StatusOK {
		t.Fatalf("expected 200 for explicitly allowed hidden role, got %d", got)
	}
}
