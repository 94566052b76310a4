package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/domain/models"
)

const dateLayout = "2006-01-02"

// StockRow is one lot line of the stock sheet.
type StockRow struct {
	Kind      models.Kind
	ID        string
	Lot       string
	Initial   decimal.Decimal
	Remaining decimal.Decimal
	UnitCost  decimal.Decimal
	UpdatedAt time.Time
}

// Value is the remaining stock priced at the lot's unit cost.
func (r StockRow) Value() decimal.Decimal { return r.Remaining.Mul(r.UnitCost) }

// KPIRow is one dated line of the KPI history sheet.
type KPIRow struct {
	Date                    time.Time
	Revenue                 decimal.Decimal
	GrossMarginPercent      decimal.Decimal
	AverageSaleValue        decimal.Decimal
	IngredientStockValue    decimal.Decimal
	PackagingStockValue     decimal.Decimal
	FinishedGoodsStockValue decimal.Decimal
	SalesCount              int
}

// Repository is the spreadsheet side of the stock export.
type Repository interface {
	// ReplaceStock rewrites the stock sheet with rows, under a header line.
	ReplaceStock(ctx context.Context, rows []StockRow) error
	AppendKPIs(ctx context.Context, row KPIRow) error
	// LastKPIs returns the newest history line. ok is false on an empty history.
	LastKPIs(ctx context.Context) (row KPIRow, ok bool, err error)
}

// GoogleSheetRepository keeps the stock and KPI history sheets of one
// spreadsheet.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	stockRange    string
	historyRange  string
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with the service account file in cfg.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportRange == "" || cfg.HistoryRange == "" {
		return nil, fmt.Errorf("sheets export needs both a stock and a history range")
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		stockRange:    cfg.ExportRange,
		historyRange:  cfg.HistoryRange,
		logger:        logger,
	}, nil
}

// ReplaceStock clears the stock range and writes the lots from its top-left cell.
func (r *GoogleSheetRepository) ReplaceStock(ctx context.Context, rows []StockRow) error {
	values := r.service.Spreadsheets.Values
	if _, err := values.Clear(r.spreadsheetID, r.stockRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", r.stockRange, err)
	}

	payload := &sheetsapi.ValueRange{Values: encodeStock(rows)}
	if _, err := values.Update(r.spreadsheetID, r.stockRange, payload).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", r.stockRange, err)
	}

	r.logger.Debug("stock sheet replaced", zap.String("range", r.stockRange), zap.Int("lots", len(rows)))
	return nil
}

// AppendKPIs adds one line to the history sheet.
func (r *GoogleSheetRepository) AppendKPIs(ctx context.Context, row KPIRow) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{encodeKPIs(row)}}
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, r.historyRange, payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append kpis to %s: %w", r.historyRange, err)
	}
	return nil
}

// LastKPIs reads the history and returns its newest parseable line.
func (r *GoogleSheetRepository) LastKPIs(ctx context.Context) (KPIRow, bool, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, r.historyRange).Context(ctx).Do()
	if err != nil {
		return KPIRow{}, false, fmt.Errorf("read %s: %w", r.historyRange, err)
	}
	row, ok := lastKPIs(resp.Values)
	return row, ok, nil
}

var stockHeader = []interface{}{"kind", "id", "lot", "initial", "remaining", "unit_cost", "stock_value", "updated_at"}

func encodeStock(rows []StockRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, stockHeader)
	for _, r := range rows {
		out = append(out, []interface{}{
			string(r.Kind),
			r.ID,
			r.Lot,
			r.Initial.String(),
			r.Remaining.String(),
			r.UnitCost.StringFixed(4),
			r.Value().StringFixed(2),
			r.UpdatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func encodeKPIs(row KPIRow) []interface{} {
	return []interface{}{
		row.Date.Format(dateLayout),
		row.Revenue.StringFixed(2),
		row.GrossMarginPercent.StringFixed(1),
		row.AverageSaleValue.StringFixed(2),
		row.IngredientStockValue.StringFixed(2),
		row.PackagingStockValue.StringFixed(2),
		row.FinishedGoodsStockValue.StringFixed(2),
		strconv.Itoa(row.SalesCount),
	}
}

// lastKPIs scans from the bottom; headers and hand-edited lines are skipped.
func lastKPIs(lines [][]interface{}) (KPIRow, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if row, err := decodeKPIs(lines[i]); err == nil {
			return row, true
		}
	}
	return KPIRow{}, false
}

func decodeKPIs(line []interface{}) (KPIRow, error) {
	if len(line) < 8 {
		return KPIRow{}, fmt.Errorf("short kpi line: %d cells", len(line))
	}
	cell := func(i int) string { return fmt.Sprint(line[i]) }

	var row KPIRow
	var err error
	if row.Date, err = time.Parse(dateLayout, cell(0)); err != nil {
		return KPIRow{}, err
	}
	amounts := []*decimal.Decimal{
		&row.Revenue, &row.GrossMarginPercent, &row.AverageSaleValue,
		&row.IngredientStockValue, &row.PackagingStockValue, &row.FinishedGoodsStockValue,
	}
	for i, dst := range amounts {
		if *dst, err = decimal.NewFromString(cell(i + 1)); err != nil {
			return KPIRow{}, err
		}
	}
	if row.SalesCount, err = strconv.Atoi(cell(7)); err != nil {
		return KPIRow{}, err
	}
	return row, nil
}
