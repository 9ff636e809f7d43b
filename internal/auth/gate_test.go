package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/backoffice-auth/internal/domain"
	"github.com/spec-kit/backoffice-auth/internal/events"
)

type fakeUsers struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

type recordedDecisions struct {
	mu        sync.Mutex
	decisions []domain.Decision
	reasons   []string
}

func (r *recordedDecisions) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload := e.Payload.(events.AuthDecisionPayload)
	r.decisions = append(r.decisions, payload.Decision)
	r.reasons = append(r.reasons, payload.Reason)
	return nil
}

func (r *recordedDecisions) lastReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reasons) == 0 {
		return ""
	}
	return r.reasons[len(r.reasons)-1]
}

func (r *recordedDecisions) last() domain.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.decisions) == 0 {
		return ""
	}
	return r.decisions[len(r.decisions)-1]
}

type gateFixture struct {
	gate   *Gate
	tokens *TokenManager
	users  *fakeUsers
	clock  *manualClock
	audit  *recordedDecisions
}

func newGateFixture(t *testing.T, legacyEnabled bool) *gateFixture {
	t.Helper()
	clock := newManualClock(issuedAt)
	tokens := NewTokenManager(testSecret, 30, clock)
	users := &fakeUsers{users: map[string]*domain.User{
		"u1":  {ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Active: true},
		"off": {ID: "off", Email: "off@example.com", Active: false},
	}}
	audit := &recordedDecisions{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventAuthDecision, audit.handle)

	gate := NewGate(tokens, NewLegacyCodec(clock), users, GateOptions{
		LegacyEnabled: legacyEnabled,
		Audit:         dispatcher,
		Clock:         clock,
	})
	return &gateFixture{gate: gate, tokens: tokens, users: users, clock: clock, audit: audit}
}

func bearer(token string) map[string][]string {
	return map[string][]string{"Authorization": {"Bearer " + token}}
}

func TestGate_SignedToken(t *testing.T) {
	f := newGateFixture(t, true)
	token, _, err := f.tokens.Issue("u1", "ada@example.com", "Ada", "Lovelace")
	require.NoError(t, err)

	outcome, err := f.gate.Authenticate(context.Background(), bearer(token))
	require.NoError(t, err)

	signed, ok := outcome.(SignedOutcome)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, "u1", signed.Claims.Subject)
	assert.Equal(t, "ada@example.com", signed.Claims.Email)
	assert.Equal(t, 0, f.users.calls)
	assert.Equal(t, domain.DecisionSignedValid, f.audit.last())
}

func TestGate_LegacyToken(t *testing.T) {
	f := newGateFixture(t, true)

	outcome, err := f.gate.Authenticate(context.Background(), bearer("token_u1_1700000000000"))
	require.NoError(t, err)

	legacy, ok := outcome.(LegacyOutcome)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, "u1", legacy.Subject)
	require.NotNil(t, legacy.User)
	assert.Equal(t, "ada@example.com", legacy.User.Email)
	assert.Equal(t, 1, f.users.calls)
	assert.Equal(t, domain.DecisionLegacyValid, f.audit.last())
}

func TestGate_Garbage(t *testing.T) {
	f := newGateFixture(t, true)

	outcome, err := f.gate.Authenticate(context.Background(), bearer("garbage"))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionMalformed, rejected.Decision)
	assert.ErrorIs(t, rejected.Err, ErrMalformedToken)
	assert.Equal(t, domain.DecisionMalformed, f.audit.last())
}

func TestGate_NoCredential(t *testing.T) {
	f := newGateFixture(t, true)

	for _, headers := range []map[string][]string{nil, {"Authorization": {"Basic abc"}}} {
		outcome, err := f.gate.Authenticate(context.Background(), headers)
		require.NoError(t, err)
		assert.IsType(t, Anonymous{}, outcome)
		assert.Equal(t, domain.DecisionNoCredential, DecisionOf(outcome))
		assert.Equal(t, ErrNoCredential.Error(), f.audit.lastReason())
	}
}

func TestGate_ForgedToken(t *testing.T) {
	f := newGateFixture(t, true)
	other := NewTokenManager([]byte("another-secret-another-secret-32"), 30, f.clock)
	token, _, err := other.Issue("u1", "", "", "")
	require.NoError(t, err)

	outcome, err := f.gate.Authenticate(context.Background(), bearer(token))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionForged, rejected.Decision)
	assert.ErrorIs(t, rejected.Err, ErrInvalidSignature)
	assert.Equal(t, 0, f.users.calls)
}

func TestGate_ExpiredTokenSkipsLegacy(t *testing.T) {
	f := newGateFixture(t, true)
	token, _, err := f.tokens.Issue("u1", "", "", "")
	require.NoError(t, err)

	f.clock.Set(issuedAt.Add(31 * 24 * time.Hour))
	outcome, err := f.gate.Authenticate(context.Background(), bearer(token))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionExpired, rejected.Decision)
	assert.ErrorIs(t, rejected.Err, ErrExpiredToken)
	assert.Equal(t, 0, f.users.calls)
	assert.Equal(t, domain.DecisionExpired, f.audit.last())
}

func TestGate_LegacyUnknownUser(t *testing.T) {
	f := newGateFixture(t, true)

	outcome, err := f.gate.Authenticate(context.Background(), bearer("token_ghost_1700000000000"))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionNotFound, rejected.Decision)
	assert.Equal(t, domain.DecisionNotFound, f.audit.last())
}

func TestGate_LegacyStoreFailure(t *testing.T) {
	f := newGateFixture(t, true)
	storeErr := errors.New("connection refused")
	f.users.err = storeErr

	outcome, err := f.gate.Authenticate(context.Background(), bearer("token_u1_1700000000000"))
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, storeErr)
}

func TestGate_LegacyDisabled(t *testing.T) {
	f := newGateFixture(t, false)

	outcome, err := f.gate.Authenticate(context.Background(), bearer("token_u1_1700000000000"))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionMalformed, rejected.Decision)
	assert.Equal(t, 0, f.users.calls)
}

func TestGate_WithoutAudit(t *testing.T) {
	clock := newManualClock(issuedAt)
	tokens := NewTokenManager(testSecret, 30, clock)
	gate := NewGate(tokens, nil, &fakeUsers{}, GateOptions{LegacyEnabled: true})

	outcome, err := gate.Authenticate(context.Background(), bearer("token_u1_1700000000000"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMalformed, DecisionOf(outcome))
}

func TestGate_LegacyEmptySubjectIsMalformed(t *testing.T) {
	f := newGateFixture(t, true)

	for _, token := range []string{"token__1700000000000", "token_u1_"} {
		outcome, err := f.gate.Authenticate(context.Background(), bearer(token))
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionMalformed, DecisionOf(outcome), token)
	}
	assert.Equal(t, 0, f.users.calls)
}

func TestGate_LegacyInactiveUser(t *testing.T) {
	f := newGateFixture(t, true)

	outcome, err := f.gate.Authenticate(context.Background(), bearer("token_off_1700000000000"))
	require.NoError(t, err)

	rejected, ok := outcome.(Rejected)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, domain.DecisionInactive, rejected.Decision)
	assert.ErrorIs(t, rejected.Err, domain.ErrUserInactive)
	assert.Equal(t, domain.DecisionInactive, f.audit.last())
}

func TestGate_LogsDecisionsWithoutAudit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	clock := newManualClock(issuedAt)
	tokens := NewTokenManager(testSecret, 30, clock)
	other := NewTokenManager([]byte("another-secret-another-secret-32"), 30, clock)
	gate := NewGate(tokens, nil, &fakeUsers{}, GateOptions{Logger: zap.New(core), Clock: clock})

	forged, _, err := other.Issue("u1", "", "", "")
	require.NoError(t, err)
	expiring, _, err := tokens.Issue("u1", "", "", "")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = gate.Authenticate(ctx, bearer(forged))
	require.NoError(t, err)
	_, err = gate.Authenticate(ctx, bearer("garbage"))
	require.NoError(t, err)
	clock.Set(issuedAt.Add(31 * 24 * time.Hour))
	_, err = gate.Authenticate(ctx, bearer(expiring))
	require.NoError(t, err)

	entries := logs.FilterMessage("auth decision").AllUntimed()
	require.Len(t, entries, 3)
	levels := map[string]zapcore.Level{}
	for _, e := range entries {
		levels[e.ContextMap()["decision"].(string)] = e.Level
	}
	assert.Equal(t, map[string]zapcore.Level{
		string(domain.DecisionForged):    zapcore.ErrorLevel,
		string(domain.DecisionMalformed): zapcore.WarnLevel,
		string(domain.DecisionExpired):   zapcore.WarnLevel,
	}, levels)
}

func TestDecisionLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, DecisionLevel(domain.DecisionForged))
	assert.Equal(t, zapcore.DebugLevel, DecisionLevel(domain.DecisionNoCredential))
	assert.Equal(t, zapcore.InfoLevel, DecisionLevel(domain.DecisionSignedValid))
	assert.Equal(t, zapcore.InfoLevel, DecisionLevel(domain.DecisionLegacyValid))
	assert.Equal(t, zapcore.WarnLevel, DecisionLevel(domain.DecisionInactive))
}
