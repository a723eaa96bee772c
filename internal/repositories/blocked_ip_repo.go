package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/websqlsentinel/sentinel/internal/database"
	"github.com/websqlsentinel/sentinel/internal/models"
)

// BlockedIPRepository handles database operations for the IP registry
type BlockedIPRepository struct {
	db *database.DB
}

// NewBlockedIPRepository creates a new BlockedIPRepository
func NewBlockedIPRepository(db *database.DB) *BlockedIPRepository {
	return &BlockedIPRepository{db: db}
}

// GetByAddress returns the entry for an exact address match, or ErrNotFound.
// Presence alone means blocked; expires_at is not compared against now here.
func (r *BlockedIPRepository) GetByAddress(ctx context.Context, ipAddress string) (*models.BlockedIP, error) {
	query := `
		SELECT id, ip_address, reason, blocked_at, expires_at
		FROM blocked_ips WHERE ip_address = $1
	`

	var entry models.BlockedIP
	err := r.db.Pool.QueryRow(ctx, query, ipAddress).Scan(
		&entry.ID, &entry.IPAddress, &entry.Reason, &entry.BlockedAt, &entry.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

// Insert creates an entry. The unique constraint on ip_address surfaces a
// concurrent duplicate as ErrConflict; the service layer treats that as
// success since the address ends up blocked either way.
func (r *BlockedIPRepository) Insert(ctx context.Context, entry *models.BlockedIP) error {
	query := `
		INSERT INTO blocked_ips (ip_address, reason, blocked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		entry.IPAddress, entry.Reason, entry.BlockedAt, entry.ExpiresAt,
	).Scan(&entry.ID)

	return database.MapPostgresError(err)
}

// Delete removes the entry for an address and reports whether one existed.
func (r *BlockedIPRepository) Delete(ctx context.Context, ipAddress string) (bool, error) {
	query := `DELETE FROM blocked_ips WHERE ip_address = $1`

	result, err := r.db.Pool.Exec(ctx, query, ipAddress)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

// List returns all entries, newest first, for the activity view.
func (r *BlockedIPRepository) List(ctx context.Context) ([]*models.BlockedIP, error) {
	query := `
		SELECT id, ip_address, reason, blocked_at, expires_at
		FROM blocked_ips
		ORDER BY blocked_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked ips: %w", err)
	}

	return scanBlockedIPRows(rows)
}

// DeleteExpired removes entries whose expiry has passed. Called by the
// background sweeper, never by the decision path.
func (r *BlockedIPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM blocked_ips WHERE expires_at IS NOT NULL AND expires_at <= $1`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

func scanBlockedIPRows(rows pgx.Rows) ([]*models.BlockedIP, error) {
	defer rows.Close()

	entries := make([]*models.BlockedIP, 0)

	for rows.Next() {
		var entry models.BlockedIP
		if err := rows.Scan(
			&entry.ID, &entry.IPAddress, &entry.Reason, &entry.BlockedAt, &entry.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan blocked ip: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}
