package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/metrics"
)

// Snapshotter provides the registry to evaluate.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*models.Registry, error)
}

// Service evaluates alerts against the live registry.
type Service struct {
	source  Snapshotter
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new alert service.
func NewService(source Snapshotter, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, metrics: m, logger: logger, now: time.Now}
}

// Current evaluates alerts now and refreshes the alert gauges.
func (s *Service) Current(ctx context.Context) ([]models.Alert, error) {
	reg, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	out := Evaluate(reg, s.now())

	counts := make(map[[2]string]int)
	for _, a := range out {
		counts[[2]string{string(a.Type), string(a.Severity)}]++
	}
	s.metrics.SetAlerts(counts)
	s.logger.Debug("alerts evaluated", zap.Int("count", len(out)))
	return out, nil
}

// Digest renders alerts as a plain-text message.
func Digest(alerts []models.Alert, at time.Time) string {
	if len(alerts) == 0 {
		return fmt.Sprintf("Stock alerts %s: nothing to report.", at.Format("2006-01-02"))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Stock alerts %s (%d)\n", at.Format("2006-01-02"), len(alerts))
	for _, a := range alerts {
		marker := "-"
		if a.Severity == models.SeverityCritical {
			marker = "!"
		}
		fmt.Fprintf(&b, "%s %s\n", marker, a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}
