package whatsapp

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/config"
	"github.com/mamadbah2/croptrace/internal/domain/models"
	client "github.com/mamadbah2/croptrace/pkg/clients/whatsapp"
)

// ErrDisabled is returned when no WhatsApp credentials are configured.
var ErrDisabled = errors.New("whatsapp notifications are disabled")

// MessagingService pushes alert digests and reports to operators.
type MessagingService interface {
	// Notify sends message to the configured alert recipient.
	Notify(ctx context.Context, message string) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Notify sends message to the alert recipient.
func (s *MetaWhatsAppService) Notify(ctx context.Context, message string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      s.cfg.AlertRecipient,
		Message: message,
	})
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ids, err := s.client.Send(ctxWithTimeout, client.Message{
		To:         req.To,
		Text:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("message sent", zap.String("to", req.To), zap.Strings("message_ids", ids))
	return nil
}

// DisabledService logs messages instead of sending them.
type DisabledService struct {
	logger *zap.Logger
}

// NewDisabledService returns a MessagingService that never sends.
func NewDisabledService(logger *zap.Logger) *DisabledService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisabledService{logger: logger}
}

func (s *DisabledService) Notify(_ context.Context, message string) error {
	s.logger.Info("notification not sent, whatsapp disabled", zap.Int("length", len(message)))
	return nil
}

func (s *DisabledService) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return ErrDisabled
}
