package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/websqlsentinel/sentinel/internal/classifier"
	"github.com/websqlsentinel/sentinel/internal/models"
	pkgauth "github.com/websqlsentinel/sentinel/pkg/auth"
	pkglogger "github.com/websqlsentinel/sentinel/pkg/logger"
)

// Outcome is the terminal, caller-visible state of one login evaluation.
type Outcome int

const (
	OutcomeGranted Outcome = iota
	OutcomeRejectedCredentials
	OutcomeRejectedBlocked
	OutcomeRejectedMalicious
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeRejectedCredentials:
		return "rejected_credentials"
	case OutcomeRejectedBlocked:
		return "rejected_blocked"
	case OutcomeRejectedMalicious:
		return "rejected_malicious"
	default:
		return "unknown"
	}
}

// Evaluation is the result of one complete login evaluation.
type Evaluation struct {
	Outcome      Outcome
	Verdict      classifier.Result
	Attempt      *models.LoginAttempt
	User         *models.User
	SessionToken string
	BlockReason  string
}

// UserFinder defines the user lookup capability consumed by the engine
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AttemptRecorder defines the attempt ledger capability consumed by the engine
type AttemptRecorder interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// IPRegistry defines the blocklist capability consumed by the engine
type IPRegistry interface {
	IsBlocked(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
	Block(ctx context.Context, ipAddress, reason string, expiresAt *time.Time) (*models.BlockedIP, error)
}

// SessionIssuer defines the session token capability consumed by the engine
type SessionIssuer interface {
	GenerateSessionToken(userID, email string) (string, error)
}

// LoginService is the login decision engine. It reconciles the classifier
// verdict, credential validity, user existence and historical IP state into a
// single terminal outcome and drives the resulting side effects: attempt
// recording, IP blocking, alerting and session issuance.
type LoginService struct {
	users       UserFinder
	attempts    AttemptRecorder
	registry    IPRegistry
	clf         *classifier.AttemptClassifier
	alerts      AlertService
	sessions    SessionIssuer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	// Tracks in-flight alert goroutines so shutdown can wait for them.
	alertWG sync.WaitGroup
}

// NewLoginService creates a new LoginService
func NewLoginService(
	users UserFinder,
	attempts AttemptRecorder,
	registry IPRegistry,
	clf *classifier.AttemptClassifier,
	alerts AlertService,
	sessions SessionIssuer,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *LoginService {
	return &LoginService{
		users:       users,
		attempts:    attempts,
		registry:    registry,
		clf:         clf,
		alerts:      alerts,
		sessions:    sessions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// EvaluateLogin runs one complete login evaluation. Transitions are evaluated
// in order and short-circuit:
//
//  1. blocked IP -> RejectedBlocked, before any classification
//  2. malicious verdict -> record attempt (if a user exists), block the IP,
//     alert the user, RejectedMalicious — regardless of password correctness
//  3. unknown user -> RejectedCredentials, no ledger row (audit log only)
//  4. credential mismatch -> record Failed attempt, RejectedCredentials
//  5. otherwise -> record Success attempt, issue session, Granted
//
// A persistence failure on any required write aborts the evaluation with an
// error: the login must never be granted without a durable attempt record.
func (s *LoginService) EvaluateLogin(ctx context.Context, identifier, secret, clientIP string) (*Evaluation, error) {
	// A previously blocked actor must never reach the classifier. The HTTP
	// layer enforces this globally before dispatch; the check here keeps the
	// invariant when the engine is driven directly.
	if entry, err := s.registry.IsBlocked(ctx, clientIP); err != nil {
		return nil, err
	} else if entry != nil {
		s.logger.Info("login rejected: blocked ip", slog.String("ip_address", clientIP))
		return &Evaluation{Outcome: OutcomeRejectedBlocked, BlockReason: entry.Reason}, nil
	}

	user, err := s.lookupUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	userExists := user != nil
	credentialsMatch := userExists && pkgauth.ComparePassword(user.PasswordHash, secret)

	// The raw submitted fields are what gets scored; normalization is for
	// lookup only, the payload itself is the threat signal.
	verdict := s.clf.Classify(identifier, secret, userExists, credentialsMatch)

	if verdict.Verdict == classifier.VerdictMalicious {
		return s.rejectMalicious(ctx, user, verdict, credentialsMatch, clientIP)
	}

	if !userExists {
		// No row can reference a non-existent user; the audit log is the only
		// trail for these.
		s.auditLogger.LogLoginEvaluation(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     clientIP,
			Verdict:       verdict.Verdict.String(),
			IsMalicious:   verdict.IsMalicious,
			IsSuspicious:  verdict.IsSuspicious,
			FailureReason: "unknown_identifier",
		})
		return &Evaluation{Outcome: OutcomeRejectedCredentials, Verdict: verdict}, nil
	}

	if !credentialsMatch {
		attempt, err := s.recordAttempt(ctx, user.ID, models.AttemptStatusFailed, verdict, clientIP)
		if err != nil {
			return nil, err
		}

		s.auditLogger.LogLoginEvaluation(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     clientIP,
			Verdict:       verdict.Verdict.String(),
			IsMalicious:   verdict.IsMalicious,
			IsSuspicious:  verdict.IsSuspicious,
			FailureReason: "invalid_credentials",
		})
		return &Evaluation{Outcome: OutcomeRejectedCredentials, Verdict: verdict, Attempt: attempt, User: user}, nil
	}

	attempt, err := s.recordAttempt(ctx, user.ID, models.AttemptStatusSuccess, verdict, clientIP)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogLoginEvaluation(pkglogger.AuditEvent{
		EventType:    "login_success",
		UserID:       user.ID,
		IPAddress:    clientIP,
		Verdict:      verdict.Verdict.String(),
		IsMalicious:  verdict.IsMalicious,
		IsSuspicious: verdict.IsSuspicious,
		Success:      true,
	})

	return &Evaluation{
		Outcome:      OutcomeGranted,
		Verdict:      verdict,
		Attempt:      attempt,
		User:         user,
		SessionToken: token,
	}, nil
}

// rejectMalicious drives the side effects of a malicious verdict: durable
// attempt record (when a user exists), IP block, then best-effort alert. The
// attempt status still reflects credential correctness — a malicious
// submission that happened to match the real password records Success, but
// the outcome is rejection either way.
func (s *LoginService) rejectMalicious(ctx context.Context, user *models.User, verdict classifier.Result, credentialsMatch bool, clientIP string) (*Evaluation, error) {
	var attempt *models.LoginAttempt

	if user != nil {
		status := models.AttemptStatusFailed
		if credentialsMatch {
			status = models.AttemptStatusSuccess
		}

		var err error
		attempt, err = s.recordAttempt(ctx, user.ID, status, verdict, clientIP)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.registry.Block(ctx, clientIP, models.BlockReasonMalicious, nil); err != nil {
		return nil, err
	}

	if user != nil {
		// The alert reports the ledger row's timestamp, not the send time.
		s.dispatchAlert(user, attempt.Timestamp, clientIP)
	}

	s.logger.Warn("malicious login attempt blocked",
		slog.String("ip_address", clientIP),
		slog.Float64("risk", verdict.Risk))
	s.auditLogger.LogLoginEvaluation(pkglogger.AuditEvent{
		EventType:     "login_malicious",
		UserID:        userIDOrEmpty(user),
		IPAddress:     clientIP,
		Verdict:       verdict.Verdict.String(),
		IsMalicious:   verdict.IsMalicious,
		IsSuspicious:  verdict.IsSuspicious,
		FailureReason: "malicious_payload",
	})

	return &Evaluation{
		Outcome:     OutcomeRejectedMalicious,
		Verdict:     verdict,
		Attempt:     attempt,
		User:        user,
		BlockReason: models.BlockReasonMalicious,
	}, nil
}

// dispatchAlert sends the security alert in the background. The block and
// attempt record are already durable by the time this runs; a send failure is
// logged and swallowed, never rolled back into the decision.
func (s *LoginService) dispatchAlert(user *models.User, attemptTime time.Time, clientIP string) {
	s.alertWG.Add(1)
	go func() {
		defer s.alertWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.alerts.SendSecurityAlert(ctx, user, attemptTime, clientIP); err != nil {
			s.logger.Error("failed to dispatch security alert",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
		}
	}()
}

// WaitForAlerts blocks until in-flight alert dispatches finish. Called during
// graceful shutdown.
func (s *LoginService) WaitForAlerts() {
	s.alertWG.Wait()
}

func (s *LoginService) lookupUser(ctx context.Context, identifier string) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(identifier))
	if email == "" {
		return nil, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// recordAttempt writes one ledger row as its own transaction, immediately
// after the verdict is decided.
func (s *LoginService) recordAttempt(ctx context.Context, userID, status string, verdict classifier.Result, clientIP string) (*models.LoginAttempt, error) {
	attempt := &models.LoginAttempt{
		UserID:       userID,
		Status:       status,
		IsMalicious:  verdict.IsMalicious,
		IsSuspicious: verdict.IsSuspicious,
		IPAddress:    clientIP,
		Timestamp:    time.Now().UTC(),
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return attempt, nil
}

func userIDOrEmpty(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
