package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/websqlsentinel/sentinel/internal/auth"
	"github.com/websqlsentinel/sentinel/internal/models"
	"github.com/websqlsentinel/sentinel/internal/services"
	pkghttp "github.com/websqlsentinel/sentinel/pkg/http"
)

// ActivityProvider defines the interface for assembling activity views
type ActivityProvider interface {
	Summary(ctx context.Context, userID string) (*services.ActivitySummary, error)
}

// ActivityHandler serves the authenticated user's activity view
type ActivityHandler struct {
	activity ActivityProvider
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activity ActivityProvider) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// LoginAttemptResponse is one ledger row in the activity view
type LoginAttemptResponse struct {
	ID           int64     `json:"id"`
	Status       string    `json:"status"`
	IsMalicious  bool      `json:"is_malicious"`
	IsSuspicious bool      `json:"is_suspicious"`
	IPAddress    string    `json:"ip_address"`
	Timestamp    time.Time `json:"timestamp"`
}

// BlockedIPResponse is one registry entry in the activity view
type BlockedIPResponse struct {
	IPAddress string     `json:"ip_address"`
	Reason    string     `json:"reason"`
	BlockedAt time.Time  `json:"blocked_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActivityResponse represents the full activity view
type ActivityResponse struct {
	Attempts   []LoginAttemptResponse `json:"login_attempts"`
	BlockedIPs []BlockedIPResponse    `json:"blocked_ips"`
}

// GetActivity returns the caller's login attempt history alongside the
// current blocklist, newest attempts first.
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	summary, err := h.activity.Summary(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := ActivityResponse{
		Attempts:   make([]LoginAttemptResponse, 0, len(summary.Attempts)),
		BlockedIPs: make([]BlockedIPResponse, 0, len(summary.BlockedIPs)),
	}

	for _, a := range summary.Attempts {
		resp.Attempts = append(resp.Attempts, LoginAttemptResponse{
			ID:           a.ID,
			Status:       a.Status,
			IsMalicious:  a.IsMalicious,
			IsSuspicious: a.IsSuspicious,
			IPAddress:    a.IPAddress,
			Timestamp:    a.Timestamp,
		})
	}

	for _, b := range summary.BlockedIPs {
		resp.BlockedIPs = append(resp.BlockedIPs, toBlockedIPResponse(b))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func toBlockedIPResponse(b *models.BlockedIP) BlockedIPResponse {
	return BlockedIPResponse{
		IPAddress: b.IPAddress,
		Reason:    b.Reason,
		BlockedAt: b.BlockedAt,
		ExpiresAt: b.ExpiresAt,
	}
}
