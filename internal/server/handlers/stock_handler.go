package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/stock"
)

// RegistryService is the write path used by the HTTP layer.
type RegistryService interface {
	Snapshot(ctx context.Context) (*models.Registry, error)
	Record(ctx context.Context, ref models.Ref) (models.Record, error)
	Save(ctx context.Context, candidate models.Record) (*stock.Result, error)
	Delete(ctx context.Context, ref models.Ref) (*stock.Result, error)
	Recost(ctx context.Context) (int, error)
	SaveCatalog(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error)
}

// StockHandler serves the lot registry.
type StockHandler struct {
	svc    RegistryService
	logger *zap.Logger
}

// NewStockHandler constructs the HTTP handler adapter.
func NewStockHandler(svc RegistryService, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{svc: svc, logger: logger}
}

type lotView struct {
	Kind      models.Kind     `json:"kind"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Initial   decimal.Decimal `json:"initialQuantity"`
	Remaining decimal.Decimal `json:"remainingQuantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	Version   int64           `json:"version"`
}

// ListLots returns every stock-bearing lot, optionally filtered by ?kind=.
func (h *StockHandler) ListLots(c *gin.Context) {
	kinds := models.Kinds
	if raw := c.Query("kind"); raw != "" {
		kind, err := models.ParseKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kinds = []models.Kind{kind}
	}

	reg, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]lotView, 0)
	for _, kind := range kinds {
		for _, lot := range reg.Lots(kind) {
			out = append(out, lotView{
				Kind:      kind,
				ID:        lot.RecordID(),
				Name:      lot.LotName(),
				Initial:   lot.Initial(),
				Remaining: lot.Remaining(),
				UnitCost:  lot.LotUnitCost(),
				Version:   lot.GetVersion(),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"lots": out})
}

// ListRecords returns every record of a kind.
func (h *StockHandler) ListRecords(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	reg, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	records := reg.Records(kind)
	if records == nil {
		records = []models.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetRecord returns one record.
func (h *StockHandler) GetRecord(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	rec, err := h.svc.Record(c.Request.Context(), models.Ref{Kind: kind, ID: c.Param("id")})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// SaveRecord creates or edits a record of the kind in the path.
func (h *StockHandler) SaveRecord(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	rec, err := models.NewRecord(kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.ShouldBindJSON(rec); err != nil {
		h.logger.Warn("invalid record payload", zap.String("kind", string(kind)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if lot, ok := rec.(*models.PurchasedLot); ok {
		lot.Category = kind
	}

	res, err := h.svc.Save(c.Request.Context(), rec)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteRecord removes a record and recredits what it held.
func (h *StockHandler) DeleteRecord(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	res, err := h.svc.Delete(c.Request.Context(), models.Ref{Kind: kind, ID: c.Param("id")})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Recost recomputes derived costs across the registry.
func (h *StockHandler) Recost(c *gin.Context) {
	n, err := h.svc.Recost(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// SaveCatalog upserts a reference entry in the collection named by the path.
func (h *StockHandler) SaveCatalog(c *gin.Context) {
	entry, ok := models.NewCatalogEntry(models.CatalogKind(c.Param("collection")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown catalog"})
		return
	}
	if err := c.ShouldBindJSON(entry); err != nil {
		h.logger.Warn("invalid catalog payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	saved, err := h.svc.SaveCatalog(c.Request.Context(), entry)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *StockHandler) kindParam(c *gin.Context) (models.Kind, bool) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}
