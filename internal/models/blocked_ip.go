package models

import "time"

// Block reasons written to blocked_ips entries
const (
	BlockReasonMalicious = "Malicious login attempt detected"
	BlockReasonManual    = "Manually blocked by user"
)

// BlockedIP is a durable entry preventing further login evaluation from an
// address. At most one entry exists per address, enforced by a unique
// constraint. ExpiresAt is nil for indefinite blocks; the decision path only
// checks presence, expired entries are removed out-of-band by the sweeper.
type BlockedIP struct {
	ID        int64      `db:"id"`
	IPAddress string     `db:"ip_address"`
	Reason    string     `db:"reason"`
	BlockedAt time.Time  `db:"blocked_at"`
	ExpiresAt *time.Time `db:"expires_at"`
}
