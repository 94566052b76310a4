package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	repo "github.com/mamadbah2/croptrace/internal/repository/sheets"
	"github.com/mamadbah2/croptrace/internal/service/costing"
)

const dateLayout = "2006-01-02"

// ErrExportDisabled is returned when no spreadsheet is configured.
var ErrExportDisabled = errors.New("spreadsheet export is not configured")

// Snapshotter provides the registry to report on.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*models.Registry, error)
}

// Service builds KPI summaries, weekly reports and the spreadsheet export.
type Service struct {
	source Snapshotter
	sheets repo.Repository
	logger *zap.Logger
}

// NewService wires a new reporting service instance. sheets may be nil, in
// which case exports are disabled.
func NewService(source Snapshotter, sheets repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, sheets: sheets, logger: logger}
}

// KPIs computes the indicator set on the live registry.
func (s *Service) KPIs(ctx context.Context) (KPISet, error) {
	reg, err := s.source.Snapshot(ctx)
	if err != nil {
		return KPISet{}, fmt.Errorf("load registry: %w", err)
	}
	return Compute(reg), nil
}

// GenerateWeeklyReport summarises the seven days ending at now.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	reg, err := s.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("load registry: %w", err)
	}
	start := now.AddDate(0, 0, -7)
	kpis := Compute(reg)

	weekRevenue := decimal.Zero
	weekSales := 0
	for _, rec := range reg.Records(models.KindSale) {
		sale := rec.(*models.Sale)
		if sale.SoldAt.Before(start) || sale.SoldAt.After(now) {
			continue
		}
		weekRevenue = weekRevenue.Add(costing.SaleMargins(reg, sale).Total)
		weekSales++
	}

	produced := 0
	for _, rec := range reg.Records(models.KindManufacturing) {
		m := rec.(*models.ManufacturingLot)
		if !m.ProducedAt.Before(start) && !m.ProducedAt.After(now) {
			produced++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly report (%s-%s)\n", start.Format(dateLayout), now.Format(dateLayout))
	fmt.Fprintf(&b, "Sales this week: %d for %s\n", weekSales, weekRevenue.StringFixed(2))
	fmt.Fprintf(&b, "Lots produced this week: %d\n", produced)
	fmt.Fprintf(&b, "Total revenue: %s, gross margin %s%%\n", kpis.TotalRevenue.StringFixed(2), kpis.GrossMarginPercent.StringFixed(1))
	fmt.Fprintf(&b, "Stock value: ingredients %s, packaging %s, finished goods %s",
		kpis.IngredientStockValue.StringFixed(2),
		kpis.PackagingStockValue.StringFixed(2),
		kpis.FinishedGoodsStockValue.StringFixed(2))

	if prev, ok := s.previousRevenue(ctx); ok {
		fmt.Fprintf(&b, "\nRevenue since last report: %s", kpis.TotalRevenue.Sub(prev).StringFixed(2))
	}

	return b.String(), nil
}

// previousRevenue reads the last KPI history line, if any.
func (s *Service) previousRevenue(ctx context.Context) (decimal.Decimal, bool) {
	if s.sheets == nil {
		return decimal.Zero, false
	}
	last, ok, err := s.sheets.LastKPIs(ctx)
	if err != nil {
		s.logger.Debug("kpi history unavailable", zap.Error(err))
		return decimal.Zero, false
	}
	return last.Revenue, ok
}

// ExportStock rewrites the stock sheet with one row per lot and appends the
// current KPI set to the history sheet.
func (s *Service) ExportStock(ctx context.Context, now time.Time) error {
	if s.sheets == nil {
		return ErrExportDisabled
	}
	reg, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	rows := StockRows(reg)
	if err := s.sheets.ReplaceStock(ctx, rows); err != nil {
		return fmt.Errorf("export stock: %w", err)
	}

	k := Compute(reg)
	history := repo.KPIRow{
		Date:                    now,
		Revenue:                 k.TotalRevenue,
		GrossMarginPercent:      k.GrossMarginPercent,
		AverageSaleValue:        k.AverageSaleValue,
		IngredientStockValue:    k.IngredientStockValue,
		PackagingStockValue:     k.PackagingStockValue,
		FinishedGoodsStockValue: k.FinishedGoodsStockValue,
		SalesCount:              k.SalesCount,
	}
	if err := s.sheets.AppendKPIs(ctx, history); err != nil {
		return fmt.Errorf("append kpi history: %w", err)
	}

	s.logger.Info("stock exported", zap.Int("lots", len(rows)))
	return nil
}

// StockRows lists every stock-bearing lot in kind order.
func StockRows(reg *models.Registry) []repo.StockRow {
	var rows []repo.StockRow
	for _, kind := range models.Kinds {
		for _, lot := range reg.Lots(kind) {
			rows = append(rows, repo.StockRow{
				Kind:      kind,
				ID:        lot.RecordID(),
				Lot:       lot.LotName(),
				Initial:   lot.Initial(),
				Remaining: lot.Remaining(),
				UnitCost:  lot.LotUnitCost(),
				UpdatedAt: lot.LastUpdated(),
			})
		}
	}
	return rows
}
