package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/websqlsentinel/sentinel/internal/database"
	"github.com/websqlsentinel/sentinel/internal/models"
)

// LoginAttemptRepository handles database operations for the attempt ledger.
// The ledger is append-only: rows are inserted exactly once per evaluation and
// there are no update paths.
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Record inserts one attempt row and fills in its generated id. Committed as
// its own transaction immediately after the verdict is decided.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (user_id, status, is_malicious, is_suspicious, ip_address, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		attempt.UserID,
		attempt.Status,
		attempt.IsMalicious,
		attempt.IsSuspicious,
		attempt.IPAddress,
		attempt.Timestamp,
	).Scan(&attempt.ID)

	return database.MapPostgresError(err)
}

// ListByUser returns a user's attempt history, newest first, for the
// activity view.
func (r *LoginAttemptRepository) ListByUser(ctx context.Context, userID string) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, user_id, status, is_malicious, is_suspicious, ip_address, timestamp
		FROM login_attempts
		WHERE user_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}

	return scanAttemptRows(rows)
}

func scanAttemptRows(rows pgx.Rows) ([]*models.LoginAttempt, error) {
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)

	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Status, &a.IsMalicious,
			&a.IsSuspicious, &a.IPAddress, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}
