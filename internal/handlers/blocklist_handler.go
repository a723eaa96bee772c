package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/websqlsentinel/sentinel/internal/models"
	pkghttp "github.com/websqlsentinel/sentinel/pkg/http"
)

// BlocklistManager defines the interface for operator blocklist management
type BlocklistManager interface {
	IsBlocked(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
	Block(ctx context.Context, ipAddress, reason string, expiresAt *time.Time) (*models.BlockedIP, error)
	Unblock(ctx context.Context, ipAddress string) (bool, error)
	List(ctx context.Context) ([]*models.BlockedIP, error)
}

// BlocklistHandler handles operator management of the IP registry
type BlocklistHandler struct {
	blocklist BlocklistManager
}

// NewBlocklistHandler creates a new BlocklistHandler
func NewBlocklistHandler(blocklist BlocklistManager) *BlocklistHandler {
	return &BlocklistHandler{blocklist: blocklist}
}

// BlockIPRequest represents the request body for blocking an address.
// TTLMinutes is optional; zero or absent means an indefinite block.
type BlockIPRequest struct {
	IPAddress  string `json:"ip_address" validate:"required,ip"`
	Reason     string `json:"reason" validate:"max=255"`
	TTLMinutes int    `json:"ttl_minutes" validate:"gte=0"`
}

// UnblockIPRequest represents the request body for unblocking an address
type UnblockIPRequest struct {
	IPAddress string `json:"ip_address" validate:"required,ip"`
}

// List returns every entry currently in the registry
func (h *BlocklistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blocklist.List(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]BlockedIPResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toBlockedIPResponse(e))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"blocked_ips": resp})
}

// Block adds an address to the registry. An address that is already blocked
// is reported as a conflict rather than silently re-blocked; the underlying
// registry itself stays idempotent for the decision engine's sake.
func (h *BlocklistHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req BlockIPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	existing, err := h.blocklist.IsBlocked(r.Context(), req.IPAddress)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	if existing != nil {
		pkghttp.WriteConflict(w, "IP address is already blocked")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = models.BlockReasonManual
	}

	var expiresAt *time.Time
	if req.TTLMinutes > 0 {
		t := time.Now().UTC().Add(time.Duration(req.TTLMinutes) * time.Minute)
		expiresAt = &t
	}

	entry, err := h.blocklist.Block(r.Context(), req.IPAddress, reason, expiresAt)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toBlockedIPResponse(entry))
}

// Unblock removes an address from the registry. Unblocking an address that
// was never blocked is 404.
func (h *BlocklistHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	var req UnblockIPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	removed, err := h.blocklist.Unblock(r.Context(), req.IPAddress)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if !removed {
		pkghttp.WriteNotFound(w, "IP address is not blocked")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
