package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/domain/models"
	"github.com/mamadbah2/croptrace/internal/service/alerts"
	"github.com/mamadbah2/croptrace/internal/service/reporting"
	"github.com/mamadbah2/croptrace/internal/service/whatsapp"
)

// AlertSource evaluates the current alerts.
type AlertSource interface {
	Current(ctx context.Context) ([]models.Alert, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	alertSvc     AlertSource
	reportingSvc *reporting.Service
	messagingSvc whatsapp.MessagingService
	cfg          config.ReportingConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a new scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, alertSvc AlertSource, reportingSvc *reporting.Service, messagingSvc whatsapp.MessagingService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		alertSvc:     alertSvc,
		reportingSvc: reportingSvc,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().In(loc) },
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("alerts", s.cfg.AlertCronSchedule),
		zap.String("report", s.cfg.ReportCronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.AlertCronSchedule, s.sendAlertDigest); err != nil {
		return fmt.Errorf("schedule alert digest: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReportCronSchedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendAlertDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	current, err := s.alertSvc.Current(ctx)
	if err != nil {
		s.logger.Error("failed to evaluate alerts", zap.Error(err))
		return
	}
	if len(current) == 0 {
		s.logger.Info("no stock alerts")
		return
	}

	if err := s.messagingSvc.Notify(ctx, alerts.Digest(current, s.now())); err != nil {
		s.logger.Error("failed to send alert digest", zap.Error(err))
		return
	}
	s.logger.Info("alert digest sent", zap.Int("alerts", len(current)))
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := s.now()
	report, err := s.reportingSvc.GenerateWeeklyReport(ctx, now)
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	if err := s.messagingSvc.Notify(ctx, report); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
	} else {
		s.logger.Info("weekly report sent successfully")
	}

	if err := s.reportingSvc.ExportStock(ctx, now); err != nil {
		if errors.Is(err, reporting.ErrExportDisabled) {
			s.logger.Debug("stock export skipped")
			return
		}
		s.logger.Error("failed to export stock", zap.Error(err))
	}
}
