package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/reporting"
)

type fakeAlerts struct {
	alerts []models.Alert
	err    error
}

func (f fakeAlerts) Current(context.Context) ([]models.Alert, error) { return f.alerts, f.err }

type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) Notify(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message)
	return nil
}

func (r *recorder) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

type staticSource struct{ reg *models.Registry }

func (s staticSource) Snapshot(context.Context) (*models.Registry, error) { return s.reg, nil }

func newTestScheduler(t *testing.T, alerts AlertSource, msg *recorder) *Scheduler {
	t.Helper()
	reg := models.NewRegistry()
	reg.Put(&models.Sale{Meta: models.Meta{ID: "s1"}, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(5)})
	report := reporting.NewService(staticSource{reg: reg}, nil, nil)

	s, err := NewScheduler(config.ReportingConfig{
		AlertCronSchedule:  "0 7 * * *",
		ReportCronSchedule: "0 20 * * 5",
		Timezone:           "UTC",
	}, alerts, report, msg, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 13, 7, 0, 0, 0, time.UTC) }
	return s
}

func TestAlertDigestSentOnlyWithAlerts(t *testing.T) {
	msg := &recorder{}
	newTestScheduler(t, fakeAlerts{}, msg).sendAlertDigest()
	assert.Empty(t, msg.sent)

	newTestScheduler(t, fakeAlerts{err: errors.New("down")}, msg).sendAlertDigest()
	assert.Empty(t, msg.sent)

	newTestScheduler(t, fakeAlerts{alerts: []models.Alert{{Severity: models.SeverityCritical, Message: "Sugar low"}}}, msg).sendAlertDigest()
	require.Len(t, msg.sent, 1)
	assert.Contains(t, msg.sent[0], "! Sugar low")
}

func TestWeeklyReportSkipsDisabledExport(t *testing.T) {
	msg := &recorder{}
	newTestScheduler(t, fakeAlerts{}, msg).sendWeeklyReport()
	require.Len(t, msg.sent, 1)
	assert.Contains(t, msg.sent[0], "Total revenue: 10.00")
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(t, fakeAlerts{}, &recorder{})
	s.cfg.AlertCronSchedule = "not a schedule"
	assert.Error(t, s.Start())

	_, err := NewScheduler(config.ReportingConfig{Timezone: "Nowhere/Void"}, fakeAlerts{}, nil, &recorder{}, nil)
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(t, fakeAlerts{}, &recorder{})
	require.NoError(t, s.Start())
	s.Stop()
}
