package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/websqlsentinel/sentinel/internal/models"
	pkglogger "github.com/websqlsentinel/sentinel/pkg/logger"
)

// BlockedIPRepository defines the interface for IP registry persistence
type BlockedIPRepository interface {
	GetByAddress(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
	Insert(ctx context.Context, entry *models.BlockedIP) error
	Delete(ctx context.Context, ipAddress string) (bool, error)
	List(ctx context.Context) ([]*models.BlockedIP, error)
}

// BlocklistService is the IP registry: it tracks blocked addresses and
// answers whether an address is currently blocked. Uniqueness per address is
// best-effort check-then-insert backed by the storage unique constraint.
type BlocklistService struct {
	repo        BlockedIPRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewBlocklistService creates a new BlocklistService
func NewBlocklistService(repo BlockedIPRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *BlocklistService {
	return &BlocklistService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IsBlocked returns the active entry for an address, or nil when the address
// is not blocked. Presence is the only criterion; an entry with a past
// expires_at still blocks until the sweeper removes it.
func (s *BlocklistService) IsBlocked(ctx context.Context, ipAddress string) (*models.BlockedIP, error) {
	entry, err := s.repo.GetByAddress(ctx, ipAddress)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to check blocklist", slog.String("ip_address", ipAddress), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return entry, nil
}

// Block adds an address to the registry. Blocking an already-blocked address
// is success: the existing entry is returned unchanged, and a concurrent
// insert losing the unique-constraint race is treated the same way, since the
// address ends up blocked either way. A nil expiresAt means indefinite.
func (s *BlocklistService) Block(ctx context.Context, ipAddress, reason string, expiresAt *time.Time) (*models.BlockedIP, error) {
	existing, err := s.repo.GetByAddress(ctx, ipAddress)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing block", slog.String("ip_address", ipAddress), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	entry := &models.BlockedIP{
		IPAddress: ipAddress,
		Reason:    reason,
		BlockedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost the race: another request blocked the address first.
			return s.repo.GetByAddress(ctx, ipAddress)
		}
		s.logger.Error("failed to insert block entry", slog.String("ip_address", ipAddress), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("ip address blocked",
		slog.String("ip_address", ipAddress),
		slog.String("reason", reason))
	s.auditLogger.LogBlocklistAction("ip_blocked", ipAddress, reason)

	return entry, nil
}

// Unblock removes an address from the registry and reports whether an entry
// was actually removed.
func (s *BlocklistService) Unblock(ctx context.Context, ipAddress string) (bool, error) {
	removed, err := s.repo.Delete(ctx, ipAddress)
	if err != nil {
		s.logger.Error("failed to remove block entry", slog.String("ip_address", ipAddress), slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	if removed {
		s.auditLogger.LogBlocklistAction("ip_unblocked", ipAddress, "")
	}

	return removed, nil
}

// List returns all registry entries for the activity view.
func (s *BlocklistService) List(ctx context.Context) ([]*models.BlockedIP, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list blocklist", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}
