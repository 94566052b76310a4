package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/costing"
	"github.com/mamadbah2/croptrace/internal/service/reporting"
	"github.com/mamadbah2/croptrace/internal/service/whatsapp"
)

// AlertService evaluates current alerts.
type AlertService interface {
	Current(ctx context.Context) ([]models.Alert, error)
}

// KPIService computes the indicator set.
type KPIService interface {
	KPIs(ctx context.Context) (reporting.KPISet, error)
}

// ReportHandler serves read-only analytics and operator messaging.
type ReportHandler struct {
	registry  RegistryService
	alerts    AlertService
	kpis      KPIService
	messaging whatsapp.MessagingService
	logger    *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(registry RegistryService, alerts AlertService, kpis KPIService, messaging whatsapp.MessagingService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{registry: registry, alerts: alerts, kpis: kpis, messaging: messaging, logger: logger}
}

// Alerts lists the current alerts, critical first.
func (h *ReportHandler) Alerts(c *gin.Context) {
	out, err := h.alerts.Current(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if out == nil {
		out = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

// KPIs returns the indicator set.
func (h *ReportHandler) KPIs(c *gin.Context) {
	k, err := h.kpis.KPIs(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

// RecipeEstimate prices a recipe from current lot costs.
func (h *ReportHandler) RecipeEstimate(c *gin.Context) {
	reg, err := h.registry.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	recipe, ok := reg.Recipe(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	c.JSON(http.StatusOK, costing.EstimateRecipe(reg, recipe))
}

// SendMessage allows sending manual notifications to operators.
func (h *ReportHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.messaging.SendOutbound(c.Request.Context(), req); err != nil {
		if errors.Is(err, whatsapp.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.Status(http.StatusAccepted)
}
