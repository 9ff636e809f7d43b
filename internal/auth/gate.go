package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/backoffice-auth/internal/domain"
	"github.com/spec-kit/backoffice-auth/internal/events"
)

// Outcome is the result of authenticating one request. It is one of
// Anonymous, SignedOutcome, LegacyOutcome or Rejected.
type Outcome interface {
	decision() domain.Decision
}

// Anonymous means the request carried no bearer credential.
type Anonymous struct{}

// SignedOutcome carries the claims of a verified signed token.
type SignedOutcome struct {
	Claims Claims
}

// LegacyOutcome carries the user resolved from an unsigned legacy token.
type LegacyOutcome struct {
	Subject string
	User    *domain.User
}

// Rejected means a credential was presented and refused.
type Rejected struct {
	Decision domain.Decision
	Err      error
}

func (Anonymous) decision() domain.Decision     { return domain.DecisionNoCredential }
func (SignedOutcome) decision() domain.Decision { return domain.DecisionSignedValid }
func (LegacyOutcome) decision() domain.Decision { return domain.DecisionLegacyValid }
func (r Rejected) decision() domain.Decision    { return r.Decision }

// DecisionOf returns the audit label of an outcome.
func DecisionOf(o Outcome) domain.Decision {
	return o.decision()
}

// UserLookup resolves users by id. Implementations return domain.ErrUserNotFound
// when the id is unknown.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// GateOptions tunes the gate.
type GateOptions struct {
	// LegacyEnabled turns the unsigned token fallback on.
	LegacyEnabled bool
	Logger        *zap.Logger
	// Audit receives one event per decision. Without it the gate logs each
	// decision itself.
	Audit events.Dispatcher
	Clock Clock
}

// Gate decides, per request, whether the caller is authenticated.
type Gate struct {
	signed        *TokenManager
	legacy        *LegacyCodec
	users         UserLookup
	legacyEnabled bool
	logger        *zap.Logger
	audit         events.Dispatcher
	clock         Clock
}

// NewGate wires the codecs and the identity store.
func NewGate(signed *TokenManager, legacy *LegacyCodec, users UserLookup, opts GateOptions) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		signed:        signed,
		legacy:        legacy,
		users:         users,
		legacyEnabled: opts.LegacyEnabled && legacy != nil,
		logger:        logger,
		audit:         opts.Audit,
		clock:         clockOrSystem(opts.Clock),
	}
}

// Authenticate runs extraction, signed validation, legacy fallback and identity
// resolution. The error return is reserved for identity store failures; every
// credential problem is reported as Rejected.
func (g *Gate) Authenticate(ctx context.Context, headers map[string][]string) (Outcome, error) {
	raw := ExtractBearerToken(headers)
	if raw == "" {
		return g.emit(ctx, Anonymous{}, ""), nil
	}

	claims, err := g.signed.Validate(raw)
	if err == nil {
		return g.emit(ctx, SignedOutcome{Claims: claims}, claims.Subject), nil
	}
	if errors.Is(err, ErrExpiredToken) {
		return g.emit(ctx, Rejected{Decision: domain.DecisionExpired, Err: err}, ""), nil
	}

	signedDecision := domain.DecisionMalformed
	if errors.Is(err, ErrInvalidSignature) {
		signedDecision = domain.DecisionForged
	}
	if !g.legacyEnabled {
		return g.emit(ctx, Rejected{Decision: signedDecision, Err: err}, ""), nil
	}

	subject, legacyErr := g.legacy.Decode(raw)
	if legacyErr != nil {
		return g.emit(ctx, Rejected{Decision: signedDecision, Err: err}, ""), nil
	}

	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return g.emit(ctx, Rejected{Decision: domain.DecisionNotFound, Err: err}, subject), nil
		}
		return nil, fmt.Errorf("resolve legacy subject: %w", err)
	}
	if !user.Active {
		return g.emit(ctx, Rejected{Decision: domain.DecisionInactive, Err: domain.ErrUserInactive}, subject), nil
	}
	return g.emit(ctx, LegacyOutcome{Subject: subject, User: user}, subject), nil
}

func (g *Gate) emit(ctx context.Context, outcome Outcome, subject string) Outcome {
	payload := events.AuthDecisionPayload{Decision: outcome.decision()}
	switch o := outcome.(type) {
	case Anonymous:
		payload.Reason = ErrNoCredential.Error()
	case Rejected:
		if o.Err != nil {
			payload.Reason = o.Err.Error()
		}
	}

	if g.audit == nil {
		if ce := g.logger.Check(DecisionLevel(payload.Decision), "auth decision"); ce != nil {
			ce.Write(
				zap.String("decision", string(payload.Decision)),
				zap.String("subject", subject),
				zap.String("reason", payload.Reason),
			)
		}
		return outcome
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAuthDecision,
		Subject:   subject,
		Timestamp: g.clock.Now(),
		Payload:   payload,
	}
	if err := g.audit.Publish(ctx, event); err != nil {
		g.logger.Warn("audit publish failed", zap.String("decision", string(payload.Decision)), zap.Error(err))
	}
	return outcome
}

// DecisionLevel is the log severity of a decision. Forged tokens log at error
// level, missing credentials at debug.
func DecisionLevel(d domain.Decision) zapcore.Level {
	switch {
	case d == domain.DecisionForged:
		return zapcore.ErrorLevel
	case d == domain.DecisionNoCredential:
		return zapcore.DebugLevel
	case d.Accepted():
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}
