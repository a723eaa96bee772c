package services

import (
	"context"
	"log/slog"

	"github.com/websqlsentinel/sentinel/internal/models"
)

// AttemptReader defines the ledger query capability for the activity view
type AttemptReader interface {
	ListByUser(ctx context.Context, userID string) ([]*models.LoginAttempt, error)
}

// ActivitySummary is the data behind a user's activity view: their own
// attempt history plus the current blocklist.
type ActivitySummary struct {
	Attempts   []*models.LoginAttempt
	BlockedIPs []*models.BlockedIP
}

// ActivityService assembles audit/activity views from the attempt ledger and
// the IP registry.
type ActivityService struct {
	attempts  AttemptReader
	blocklist *BlocklistService
	logger    *slog.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(attempts AttemptReader, blocklist *BlocklistService, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		attempts:  attempts,
		blocklist: blocklist,
		logger:    logger,
	}
}

// Summary returns the activity view for one user.
func (s *ActivityService) Summary(ctx context.Context, userID string) (*ActivitySummary, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list login attempts", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	blocked, err := s.blocklist.List(ctx)
	if err != nil {
		return nil, err
	}

	return &ActivitySummary{
		Attempts:   attempts,
		BlockedIPs: blocked,
	}, nil
}
