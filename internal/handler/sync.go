package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopsync/internal/service"
)

type SyncHandler struct {
	Service *service.SyncService
	Logger  *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/sync")
	group.POST("/run", h.runCycle)
	group.POST("/backfill", h.backfill)
	group.GET("/status", h.status)
}

// @Summary Run a sync cycle now
// @Tags sync
// @Param resources query string false "comma-separated resource filter (orders,customers,products)"
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/run [post]
func (h *SyncHandler) runCycle(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var resources []string
	if raw := strings.TrimSpace(c.Query("resources")); raw != "" {
		resources = strings.Split(raw, ",")
	}
	report, err := h.Service.RunCycle(c.Request.Context(), resources)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

type backfillRequest struct {
	Resource string    `json:"resource" binding:"required"`
	From     time.Time `json:"from" binding:"required"`
	To       time.Time `json:"to" binding:"required"`
	Window   string    `json:"window"`
}

// @Summary Backfill a historic range in windows
// @Tags sync
// @Param request body backfillRequest true "backfill range"
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/backfill [post]
func (h *SyncHandler) backfill(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	opts := service.BackfillOptions{
		Resource: strings.ToLower(strings.TrimSpace(req.Resource)),
		From:     req.From,
		To:       req.To,
	}
	if req.Window != "" {
		window, err := time.ParseDuration(req.Window)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid window: "+err.Error(), nil)
			return
		}
		opts.Window = window
	}
	report, err := h.Service.Backfill(c.Request.Context(), opts)
	if err != nil {
		var extractErr *service.ExtractionError
		var loadErr *service.LoadError
		if errors.As(err, &extractErr) || errors.As(err, &loadErr) {
			if h.Logger != nil {
				h.Logger.Warn("backfill failed", zap.Error(err))
			}
			Error(c, http.StatusBadGateway, err.Error(), map[string]any{"partial": report})
			return
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

// @Summary List per-resource sync cursors
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/status [get]
func (h *SyncHandler) status(c *gin.Context) {
	if h.Service == nil || h.Service.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Service.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync state failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, states, nil)
}
