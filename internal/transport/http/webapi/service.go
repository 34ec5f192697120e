package webapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SamyKr/VisuAI-sub000/internal/app/engine"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/config"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
	httptransport "github.com/SamyKr/VisuAI-sub000/internal/transport/http"
)

// Service exposes the engine over the control HTTP API.
type Service struct {
	logger   *logging.Logger
	config   *config.Config
	engine   *engine.Engine
	recorder *history.Recorder
	issuer   *TokenIssuer
}

// NewService wires the control API against a running engine. The recorder is
// optional; without one the history route answers 503.
func NewService(cfg *config.Config, eng *engine.Engine, recorder *history.Recorder, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "config is required")
	}
	if eng == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "engine is required")
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		engine:   eng,
		recorder: recorder,
		issuer:   NewTokenIssuer(cfg.Web.Auth),
	}, nil
}

// Register mounts the control routes on the /api group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/status", s.handleStatus)
	router.GET("/system", s.handleSystem)
	router.GET("/history", s.handleHistory)
	router.POST("/auth/token", s.handleAuthToken)

	secured := router.Group("")
	secured.Use(AuthMiddleware(s.config, s.issuer, s.logger))
	{
		secured.POST("/ask", s.handleAsk)
		secured.POST("/scene", s.handleScene)
	}

	s.logger.InfoTag("HTTP", "control API routes registered")
	return nil
}

// handleStatus reports the engine snapshot.
// @Summary Engine status
// @Description Session state, capability flags and scene snapshot freshness
// @Tags Engine
// @Produce json
// @Success 200 {object} engine.Status
// @Router /status [get]
func (s *Service) handleStatus(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.engine.Status(), "")
}

// handleAsk answers a text question against the current snapshot.
// @Summary Ask a question
// @Description Parses the question, analyzes the current scene snapshot and returns the answer
// @Tags Engine
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} engine.Answer
// @Failure 400 {object} httptransport.APIResponse
// @Router /ask [post]
func (s *Service) handleAsk(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid JSON body", gin.H{"error": err.Error()})
		return
	}

	answer, err := s.engine.AskText(req.Text)
	if err != nil {
		if errors.IsKind(err, errors.KindDomain) {
			httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to answer question", gin.H{"error": err.Error()})
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, answer, "question answered")
}

// handleScene accepts a pushed snapshot from tooling or simulators.
func (s *Service) handleScene(c *gin.Context) {
	var req struct {
		Objects []scene.TrackedObject `json:"objects"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid JSON body", gin.H{"error": err.Error()})
		return
	}

	s.engine.UpdateImportantObjects(req.Objects)
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"objects": len(req.Objects)}, "snapshot accepted")
}

// handleHistory lists recent question records.
// @Summary Question history
// @Description Most recent question records, newest first
// @Tags Engine
// @Produce json
// @Success 200 {object} map[string]interface{} "records and total"
// @Router /history [get]
func (s *Service) handleHistory(c *gin.Context) {
	if s.recorder == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "question history is not configured", nil)
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	ctx := c.Request.Context()
	records, err := s.recorder.Recent(ctx, limit)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load history", gin.H{"error": err.Error()})
		return
	}
	total, err := s.recorder.Count(ctx)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to count history", gin.H{"error": err.Error()})
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"records": records, "total": total}, "")
}

// handleAuthToken issues a bearer token when the caller presents the
// configured API secret.
func (s *Service) handleAuthToken(c *gin.Context) {
	if !s.config.Web.Auth.Enabled {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "authentication is disabled", nil)
		return
	}

	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid JSON body", gin.H{"error": err.Error()})
		return
	}
	if req.Secret == "" || req.Secret != s.config.Web.Auth.Secret {
		s.logger.WarnTag("HTTP", "token request with wrong secret rejected")
		httptransport.RespondError(c, http.StatusUnauthorized, "invalid secret", nil)
		return
	}

	token, expires, err := s.issuer.Issue("control")
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to issue token", gin.H{"error": err.Error()})
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	}, "token issued")
}
