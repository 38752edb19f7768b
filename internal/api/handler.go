package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"CoinScreener/internal/model"
	"CoinScreener/internal/screener"
	"CoinScreener/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the screener service over HTTP.
type Handler struct {
	svc    *screener.Service
	logger *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *screener.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status returns the cached snapshot state.
// GET /api/status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// Conditions lists the screening rules.
// GET /api/conditions
func (h *Handler) Conditions(c *gin.Context) {
	out := make([]gin.H, 0, len(strategy.Conditions))
	for _, cond := range strategy.Conditions {
		out = append(out, gin.H{"id": cond.ID, "name": cond.Name, "description": cond.Description})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Refresh rebuilds the snapshot.
// POST /api/refresh
func (h *Handler) Refresh(c *gin.Context) {
	res, err := h.svc.Refresh(c.Request.Context(), screener.TriggerAPI)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updatedAt": res.UpdatedAt, "count": res.Count, "generation": res.Generation})
}

// Filter screens the snapshot.
// GET /api/filter?condition=1..4&rsi=50&monthly=0
func (h *Handler) Filter(c *gin.Context) {
	p, err := parseFilterQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Filter(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Export downloads the latest export file.
// GET /api/export
func (h *Handler) Export(c *gin.Context) {
	path := h.svc.ExportPath()
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no export yet, run a filter first"})
		return
	}
	c.FileAttachment(path, "screen.csv")
}

func parseFilterQuery(c *gin.Context) (screener.FilterParams, error) {
	raw := c.Query("condition")
	if raw == "" {
		return screener.FilterParams{}, errors.New("condition is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return screener.FilterParams{}, errors.New("condition must be an integer")
	}
	id, err := model.ParseConditionID(n)
	if err != nil {
		return screener.FilterParams{}, err
	}
	p := screener.DefaultFilterParams(id)
	if v := c.Query("rsi"); v != "" {
		if p.RSIFloor, err = strconv.ParseFloat(v, 64); err != nil {
			return screener.FilterParams{}, errors.New("rsi must be a number")
		}
	}
	if v := c.Query("monthly"); v != "" {
		if p.MonthlyMin, err = strconv.Atoi(v); err != nil || p.MonthlyMin < 0 {
			return screener.FilterParams{}, errors.New("monthly must be a non-negative integer")
		}
	}
	return p, nil
}

// fail maps service errors to responses. Only parameter errors echo their text.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, screener.ErrInvalidParams):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case screener.IsUpstream(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "market data provider unavailable"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
