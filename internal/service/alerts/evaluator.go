// Package alerts derives stock and date alerts from the registry.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/croptrace/internal/domain/models"
)

const (
	defaultAlertDays  = 30
	criticalAlertDays = 7
)

var two = decimal.NewFromInt(2)

// Evaluate returns every alert for the registry at the given instant, critical
// alerts first.
func Evaluate(reg *models.Registry, now time.Time) []models.Alert {
	var out []models.Alert
	out = append(out, lowStock(reg)...)
	out = append(out, expiring(reg, now)...)
	out = append(out, finishedGoods(reg)...)
	out = append(out, bestBefore(reg, now)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity == models.SeverityCritical
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Subject < b.Subject
	})
	return out
}

func lowStock(reg *models.Registry) []models.Alert {
	var out []models.Alert
	for _, t := range reg.Thresholds() {
		if !t.Minimum.IsPositive() {
			continue
		}
		total := decimal.Zero
		for _, lot := range reg.Lots(t.Kind) {
			if models.SameName(lot.LotName(), t.ResourceName) {
				total = total.Add(lot.Remaining())
			}
		}
		if !total.LessThan(t.Minimum) {
			continue
		}
		out = append(out, models.Alert{
			Type:      models.AlertLowStock,
			Severity:  severityForLevel(total, t.Minimum),
			Subject:   t.ResourceName,
			Quantity:  total,
			Threshold: t.Minimum,
			Message:   fmt.Sprintf("%s low: %s %s left, minimum %s", t.ResourceName, total, t.Unit, t.Minimum),
		})
	}
	return out
}

func expiring(reg *models.Registry, now time.Time) []models.Alert {
	var out []models.Alert
	for _, kind := range []models.Kind{models.KindIngredient, models.KindPackaging, models.KindAgriculturalInput} {
		for _, lot := range reg.Lots(kind) {
			l := lot.(*models.PurchasedLot)
			if l.ExpiresAt == nil || !l.RemainingQuantity.IsPositive() {
				continue
			}
			window := expiryWindow(reg, l)
			days := daysUntil(now, *l.ExpiresAt)
			if days > window {
				continue
			}
			ref := l.Ref()
			msg := fmt.Sprintf("%s lot %s expires in %d days", l.Name, l.SupplierLotNumber, days)
			if days < 0 {
				msg = fmt.Sprintf("%s lot %s expired %d days ago", l.Name, l.SupplierLotNumber, -days)
			}
			out = append(out, models.Alert{
				Type:     models.AlertExpiry,
				Severity: severityForDays(days),
				Subject:  l.Name,
				Lot:      &ref,
				Quantity: l.RemainingQuantity,
				DaysLeft: &days,
				Message:  msg,
			})
		}
	}
	return out
}

func expiryWindow(reg *models.Registry, l *models.PurchasedLot) int {
	for _, t := range reg.Thresholds() {
		if t.Kind == l.Category && models.SameName(t.ResourceName, l.Name) && t.ExpiryAlertDays > 0 {
			return t.ExpiryAlertDays
		}
	}
	return defaultAlertDays
}

func finishedGoods(reg *models.Registry) []models.Alert {
	var out []models.Alert
	for _, p := range reg.Products() {
		if !p.ReorderThreshold.IsPositive() {
			continue
		}
		total := decimal.Zero
		for _, rec := range reg.Records(models.KindManufacturing) {
			m := rec.(*models.ManufacturingLot)
			if m.ProductID == p.ID && m.Status == models.ManufacturingSellable {
				total = total.Add(m.RemainingQuantity)
			}
		}
		if !total.LessThan(p.ReorderThreshold) {
			continue
		}
		out = append(out, models.Alert{
			Type:      models.AlertFinishedGoodsLow,
			Severity:  severityForLevel(total, p.ReorderThreshold),
			Subject:   p.Name,
			Quantity:  total,
			Threshold: p.ReorderThreshold,
			Message:   fmt.Sprintf("%s sellable stock %s %s, reorder at %s", p.Name, total, p.Unit, p.ReorderThreshold),
		})
	}
	return out
}

func bestBefore(reg *models.Registry, now time.Time) []models.Alert {
	var out []models.Alert
	for _, rec := range reg.Records(models.KindManufacturing) {
		m := rec.(*models.ManufacturingLot)
		if m.Status != models.ManufacturingSellable || m.BestBefore == nil || !m.RemainingQuantity.IsPositive() {
			continue
		}
		window := defaultAlertDays
		name := m.ProductName
		if p, ok := reg.Product(m.ProductID); ok {
			name = p.Name
			if p.BestBeforeAlertDays > 0 {
				window = p.BestBeforeAlertDays
			}
		}
		days := daysUntil(now, *m.BestBefore)
		if days > window {
			continue
		}
		ref := m.Ref()
		out = append(out, models.Alert{
			Type:     models.AlertBestBeforeApproach,
			Severity: severityForDays(days),
			Subject:  name,
			Lot:      &ref,
			Quantity: m.RemainingQuantity,
			DaysLeft: &days,
			Message:  fmt.Sprintf("%s lot %s best before in %d days (%s left)", name, m.LotNumber, days, m.RemainingQuantity),
		})
	}
	return out
}

func severityForLevel(total, minimum decimal.Decimal) models.Severity {
	if total.LessThan(minimum.Div(two)) {
		return models.SeverityCritical
	}
	return models.SeverityWarning
}

func severityForDays(days int) models.Severity {
	if days <= criticalAlertDays {
		return models.SeverityCritical
	}
	return models.SeverityWarning
}

// daysUntil counts calendar days in UTC from now to at.
func daysUntil(now, at time.Time) int {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return int(day(at).Sub(day(now)).Hours() / 24)
}
