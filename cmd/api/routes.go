package main

import (
	"database/sql"
	"net/http"
	"time"

	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/rbac"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB, rdb *redis.Client) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	// NOTE: placeholder credential handling; see Handlers.Login.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// CALLS routes: initiation and turn processing are operator work.
		callGroup := v1.Group("/calls")
		callGroup.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleSuperAdmin)...)
		{
			callGroup.POST("", h.InitiateCall)
			callGroup.GET("/:call_id", h.GetCall)
			callGroup.GET("/:call_id/transcript", h.GetTranscript)
			callGroup.POST("/:call_id/greet", h.Greet)
			callGroup.POST("/:call_id/turns", h.SubmitTurn)
			callGroup.POST("/:call_id/end", h.EndCall)
		}

		// REPORTING routes: analysts may read, operators may not.
		reports := v1.Group("/reports")
		reports.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleSuperAdmin)...)
		{
			reports.GET("/calls-summary", h.CallsSummary)
		}
	}
}
