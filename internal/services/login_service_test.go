package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websqlsentinel/sentinel/internal/classifier"
	"github.com/websqlsentinel/sentinel/internal/models"
	pkgauth "github.com/websqlsentinel/sentinel/pkg/auth"
	pkglogger "github.com/websqlsentinel/sentinel/pkg/logger"
)

// stubScorer returns a fixed risk per exact input and records invocations
type stubScorer struct {
	scores map[string]float64
	calls  int
}

func (s *stubScorer) Score(text string) float64 {
	s.calls++
	return s.scores[text]
}

type loginFixture struct {
	users    *MockUserRepository
	attempts *MockLoginAttemptRepository
	registry *MockIPRegistry
	scorer   *stubScorer
	alerts   *MockAlertService
	sessions *MockSessionIssuer
	svc      *LoginService
}

func newLoginFixture(t *testing.T, scores map[string]float64) *loginFixture {
	t.Helper()

	f := &loginFixture{
		users:    &MockUserRepository{},
		attempts: &MockLoginAttemptRepository{},
		registry: &MockIPRegistry{},
		scorer:   &stubScorer{scores: scores},
		alerts:   NewMockAlertService(),
		sessions: &MockSessionIssuer{},
	}

	logger := slog.Default()
	f.svc = NewLoginService(
		f.users,
		f.attempts,
		f.registry,
		classifier.NewAttemptClassifier(f.scorer),
		f.alerts,
		f.sessions,
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	return f
}

func (f *loginFixture) withUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)

	user := NewTestUser("user-1", email, hash)
	f.users.GetByEmailFunc = func(ctx context.Context, e string) (*models.User, error) {
		if e == email {
			return user, nil
		}
		return nil, models.ErrNotFound
	}
	return user
}

func TestLoginService_EvaluateLogin_Granted(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})
	f.withUser(t, "alice@example.com", "correct-horse-1")

	eval, err := f.svc.EvaluateLogin(context.Background(), "alice@example.com", "correct-horse-1", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, eval.Outcome)
	assert.Equal(t, "test-session-token", eval.SessionToken)

	require.Len(t, f.attempts.Recorded, 1)
	row := f.attempts.Recorded[0]
	assert.Equal(t, models.AttemptStatusSuccess, row.Status)
	assert.False(t, row.IsMalicious)
	assert.False(t, row.IsSuspicious)
	assert.Equal(t, "203.0.113.9", row.IPAddress)
	assert.Empty(t, f.registry.Blocked)
}

func TestLoginService_EvaluateLogin_BlockedIPShortCircuits(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})
	f.registry.IsBlockedFunc = func(ctx context.Context, ip string) (*models.BlockedIP, error) {
		return &models.BlockedIP{IPAddress: ip, Reason: models.BlockReasonMalicious}, nil
	}

	eval, err := f.svc.EvaluateLogin(context.Background(), "alice@example.com", "whatever1", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedBlocked, eval.Outcome)
	assert.Equal(t, models.BlockReasonMalicious, eval.BlockReason)

	// The classifier must never see input from a blocked address
	assert.Zero(t, f.scorer.calls)
	assert.Empty(t, f.attempts.Recorded)
	assert.Empty(t, eval.SessionToken)
}

func TestLoginService_EvaluateLogin_MaliciousUnknownUser(t *testing.T) {
	payload := "' OR '1'='1' --"
	f := newLoginFixture(t, map[string]float64{payload: 0.95})

	eval, err := f.svc.EvaluateLogin(context.Background(), payload, "password1", "198.51.100.7")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	assert.Equal(t, []string{"198.51.100.7"}, f.registry.Blocked)

	// No user, so no ledger row and no alert
	assert.Empty(t, f.attempts.Recorded)
	assert.Nil(t, eval.Attempt)
	f.svc.WaitForAlerts()
	assert.Empty(t, f.alerts.Sent)
}

func TestLoginService_EvaluateLogin_MaliciousKnownUserWrongPassword(t *testing.T) {
	payload := "anything' UNION SELECT password FROM users--"
	f := newLoginFixture(t, map[string]float64{payload: 0.88})
	f.withUser(t, "bob@example.com", "real-password-1")

	eval, err := f.svc.EvaluateLogin(context.Background(), "bob@example.com", payload, "198.51.100.7")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	assert.Equal(t, []string{"198.51.100.7"}, f.registry.Blocked)

	require.Len(t, f.attempts.Recorded, 1)
	row := f.attempts.Recorded[0]
	assert.Equal(t, models.AttemptStatusFailed, row.Status)
	assert.True(t, row.IsMalicious)
	assert.True(t, row.IsSuspicious)

	f.svc.WaitForAlerts()
	select {
	case email := <-f.alerts.Sent:
		assert.Equal(t, "bob@example.com", email)
	default:
		t.Fatal("expected a security alert to be dispatched")
	}
}

func TestLoginService_EvaluateLogin_MaliciousWithValidCredentials(t *testing.T) {
	// A correct password does not neutralize a malicious payload: the attempt
	// records Success but the login is still rejected and the IP blocked.
	secret := "hunter2' OR 1=1--"
	f := newLoginFixture(t, map[string]float64{secret: 0.91})
	f.withUser(t, "carol@example.com", secret)

	eval, err := f.svc.EvaluateLogin(context.Background(), "carol@example.com", secret, "192.0.2.4")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	assert.Empty(t, eval.SessionToken)
	assert.Equal(t, []string{"192.0.2.4"}, f.registry.Blocked)

	require.Len(t, f.attempts.Recorded, 1)
	assert.Equal(t, models.AttemptStatusSuccess, f.attempts.Recorded[0].Status)
	assert.True(t, f.attempts.Recorded[0].IsMalicious)
	f.svc.WaitForAlerts()
}

func TestLoginService_EvaluateLogin_UnknownUser(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})

	eval, err := f.svc.EvaluateLogin(context.Background(), "nobody@example.com", "password1", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedCredentials, eval.Outcome)
	assert.Equal(t, classifier.VerdictSuspicious, eval.Verdict.Verdict)

	// No row can reference a non-existent user
	assert.Empty(t, f.attempts.Recorded)
	assert.Empty(t, f.registry.Blocked)
}

func TestLoginService_EvaluateLogin_WrongPassword(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})
	f.withUser(t, "dave@example.com", "real-password-1")

	eval, err := f.svc.EvaluateLogin(context.Background(), "dave@example.com", "wrong-password-1", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedCredentials, eval.Outcome)

	require.Len(t, f.attempts.Recorded, 1)
	row := f.attempts.Recorded[0]
	assert.Equal(t, models.AttemptStatusFailed, row.Status)
	assert.False(t, row.IsMalicious)
	assert.True(t, row.IsSuspicious)
	assert.Empty(t, f.registry.Blocked)
}

func TestLoginService_EvaluateLogin_IdentifierNormalizedForLookupOnly(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})
	f.withUser(t, "erin@example.com", "real-password-1")

	eval, err := f.svc.EvaluateLogin(context.Background(), "  ERIN@Example.com ", "real-password-1", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, eval.Outcome)
}

func TestLoginService_EvaluateLogin_RecordFailureAborts(t *testing.T) {
	f := newLoginFixture(t, map[string]float64{})
	f.withUser(t, "frank@example.com", "real-password-1")
	f.attempts.RecordFunc = func(ctx context.Context, attempt *models.LoginAttempt) error {
		return models.ErrInternalServer
	}

	eval, err := f.svc.EvaluateLogin(context.Background(), "frank@example.com", "real-password-1", "203.0.113.9")

	// Never granted without a durable ledger row
	assert.Nil(t, eval)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestLoginService_EvaluateLogin_MaxOfBothFields(t *testing.T) {
	// A safe identifier does not dilute a malicious secret
	f := newLoginFixture(t, map[string]float64{
		"gina@example.com": 0.01,
		"' OR 1=1 --":      0.97,
	})
	f.withUser(t, "gina@example.com", "real-password-1")

	eval, err := f.svc.EvaluateLogin(context.Background(), "gina@example.com", "' OR 1=1 --", "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	assert.InDelta(t, 0.97, eval.Verdict.Risk, 1e-9)
	f.svc.WaitForAlerts()
}

func TestLoginService_AlertCarriesAttemptTimestamp(t *testing.T) {
	payload := "ivy' OR 'a'='a"
	f := newLoginFixture(t, map[string]float64{payload: 0.93})
	f.withUser(t, "ivy@example.com", "real-password-1")

	var gotTime time.Time
	f.alerts.SendFunc = func(ctx context.Context, user *models.User, attemptTime time.Time, ip string) error {
		gotTime = attemptTime
		return nil
	}

	eval, err := f.svc.EvaluateLogin(context.Background(), "ivy@example.com", payload, "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	f.svc.WaitForAlerts()

	// The alert reports when the attempt was recorded, not when it was sent
	require.Len(t, f.attempts.Recorded, 1)
	assert.Equal(t, f.attempts.Recorded[0].Timestamp, gotTime)
}

func TestLoginService_AlertFailureDoesNotAffectOutcome(t *testing.T) {
	payload := "'; DROP TABLE users; --"
	f := newLoginFixture(t, map[string]float64{payload: 0.99})
	f.withUser(t, "hank@example.com", "real-password-1")
	f.alerts.SendFunc = func(ctx context.Context, user *models.User, attemptTime time.Time, ip string) error {
		return assert.AnError
	}

	eval, err := f.svc.EvaluateLogin(context.Background(), "hank@example.com", payload, "203.0.113.9")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejectedMalicious, eval.Outcome)
	f.svc.WaitForAlerts()
}
