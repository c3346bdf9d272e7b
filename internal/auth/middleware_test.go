package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voiceagent-platform/internal/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	r := gin.New()
	r.GET("/whoami", RequireAccessToken(m), func(c *gin.Context) {
		ws, err := WorkspaceID(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		role, err := Role(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workspace_id": ws, "role": role})
	})
	return r, m
}

func TestRequireAccessToken_InjectsIdentity(t *testing.T) {
	r, m := newTestRouter(t)

	pair, err := m.IssuePair(time.Now(), "user-1", "ws-1", "operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"ws-1", "operator"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in response, got %s", want, body)
		}
	}
}

func TestRequireAccessToken_RejectsMissingAndWrongTokens(t *testing.T) {
	r, m := newTestRouter(t)

	pair, err := m.IssuePair(time.Now(), "user-1", "ws-1", "operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"refresh token": "Bearer " + pair.RefreshToken,
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, w.Code)
		}
	}
}
