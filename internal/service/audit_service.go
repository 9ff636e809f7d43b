package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-auth/internal/auth"
	"github.com/spec-kit/backoffice-auth/internal/events"
	"github.com/spec-kit/backoffice-auth/internal/observability"
)

// AuditService turns authentication events into audit log lines and metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAuthDecision, a.handleAuthDecision)
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
}

func (a *AuditService) handleAuthDecision(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AuthDecisionPayload)
	if !ok {
		return nil
	}
	a.metrics.RecordAuthDecision(string(payload.Decision))

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("decision", string(payload.Decision)),
		zap.Time("at", event.Timestamp),
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}
	if payload.Reason != "" {
		fields = append(fields, zap.String("reason", payload.Reason))
	}

	if ce := a.logger.Check(auth.DecisionLevel(payload.Decision), "auth decision"); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (a *AuditService) handleTokenIssued(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TokenIssuedPayload)
	if !ok {
		return nil
	}
	a.metrics.RecordTokenIssued(payload.Via)
	a.logger.Info("token issued",
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
		zap.String("via", payload.Via),
		zap.Time("expires_at", payload.ExpiresAt))
	return nil
}
