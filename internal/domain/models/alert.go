package models

import "github.com/shopspring/decimal"

// AlertType names what an alert is about.
type AlertType string

const (
	AlertLowStock           AlertType = "low_stock"
	AlertExpiry             AlertType = "expiry"
	AlertFinishedGoodsLow   AlertType = "finished_goods_low"
	AlertBestBeforeApproach AlertType = "best_before"
)

// Severity ranks alerts; critical ones are listed first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Alert is a derived notice about stock levels or dates. Alerts are computed
// from the registry and never stored.
type Alert struct {
	Type      AlertType       `json:"type"`
	Severity  Severity        `json:"severity"`
	Subject   string          `json:"subject"`
	Lot       *Ref            `json:"lot,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
	DaysLeft  *int            `json:"daysLeft,omitempty"`
	Message   string          `json:"message"`
}
