package models

import "time"

// Attempt statuses as persisted on login_attempts rows
const (
	AttemptStatusSuccess = "Success"
	AttemptStatusFailed  = "Failed"
)

// LoginAttempt is the append-only audit record of one completed login
// evaluation. Rows are created exactly once and never mutated. The verdict is
// carried as two independent booleans rather than an enum: both are derived
// from the same risk score, so is_malicious and is_suspicious can be set
// simultaneously on the same row.
type LoginAttempt struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	Status       string    `db:"status"`
	IsMalicious  bool      `db:"is_malicious"`
	IsSuspicious bool      `db:"is_suspicious"`
	IPAddress    string    `db:"ip_address"`
	Timestamp    time.Time `db:"timestamp"`
}
