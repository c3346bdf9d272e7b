package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/compliance"
	"voiceagent-platform/internal/orchestrator"
	"voiceagent-platform/internal/rbac"
	"voiceagent-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Calls     *calls.Service
	Processor *orchestrator.Processor
	Reports   *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

type initiateCallRequest struct {
	AgentID  string `json:"agent_id"`
	Customer struct {
		PhoneNumber string `json:"phone_number"`
		Name        string `json:"name,omitempty"`
	} `json:"customer"`
}

// InitiateCall creates a queued call after the compliance gate passes.
func (h Handlers) InitiateCall(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	call, err := h.Calls.Initiate(c.Request.Context(), workspaceID, calls.InitiateRequest{
		AgentID: req.AgentID,
		Customer: calls.Customer{
			PhoneNumber: req.Customer.PhoneNumber,
			Name:        req.Customer.Name,
		},
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

// GetCall returns one call record.
func (h Handlers) GetCall(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), workspaceID, c.Param("call_id"))
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// GetTranscript returns the ordered dialogue of one call.
func (h Handlers) GetTranscript(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	entries, err := h.Calls.Transcript(c.Request.Context(), workspaceID, c.Param("call_id"))
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": c.Param("call_id"), "entries": entries})
}

// Greet speaks the agent's opening line and marks the call in progress.
func (h Handlers) Greet(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	result, err := h.Processor.Greet(c.Request.Context(), workspaceID, c.Param("call_id"))
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type turnRequest struct {
	AudioBase64 string `json:"audio_base64"`
}

// SubmitTurn runs one conversation exchange through the pipeline.
func (h Handlers) SubmitTurn(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "audio_base64 must be valid base64"})
		return
	}

	result, err := h.Processor.ProcessTurn(c.Request.Context(), workspaceID, c.Param("call_id"), orchestrator.TurnInput{Audio: audio})
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type endCallRequest struct {
	Status          string `json:"status"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	CostMinor       *int64 `json:"cost_minor,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// EndCall finalizes the call into a terminal state.
func (h Handlers) EndCall(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	var req endCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	call, err := h.Calls.End(c.Request.Context(), workspaceID, c.Param("call_id"), calls.EndRequest{
		Status:          calls.CallStatus(req.Status),
		DurationSeconds: req.DurationSeconds,
		CostMinor:       req.CostMinor,
		Reason:          req.Reason,
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// --- Reporting ---

// CallsSummary aggregates workspace calls over a time range.
// Query params: from, to (RFC3339), agent_id (optional).
func (h Handlers) CallsSummary(c *gin.Context) {
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return
	}

	summary, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		WorkspaceID: workspaceID,
		AgentID:     c.Query("agent_id"),
		Range:       reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// writeCallError maps domain errors onto HTTP statuses.
//
// Mapping:
// - missing agent/call            -> 404
// - invalid input                 -> 400
// - compliance block              -> 422 (the attempt is well-formed but not placeable)
// - verifier outage               -> 502 (fail-closed, retryable)
// - terminal call / busy call     -> 409
// - provider stage failure        -> 502
func writeCallError(c *gin.Context, err error) {
	var blocked *calls.ComplianceBlockedError
	var stage *orchestrator.StageError

	switch {
	case errors.Is(err, agents.ErrNotFound), errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, calls.ErrInvalidArgument), errors.Is(err, orchestrator.ErrEmptyUtterance):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &blocked):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "call blocked", "reason": blocked.Reason})
	case errors.Is(err, compliance.ErrVerifierUnavailable):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "compliance verifier unavailable, try again later"})
	case errors.Is(err, calls.ErrCallNotActive), errors.Is(err, calls.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call is not active"})
	case errors.Is(err, orchestrator.ErrTurnInProgress):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "another turn is in progress"})
	case errors.As(err, &stage):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": stage.Stage + " provider failed"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
