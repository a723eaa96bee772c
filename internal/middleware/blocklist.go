package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/websqlsentinel/sentinel/internal/models"
	pkghttp "github.com/websqlsentinel/sentinel/pkg/http"
)

// BlocklistChecker answers whether an address is currently in the IP registry
type BlocklistChecker interface {
	IsBlocked(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
}

// Paths the gate does not apply to. Operators must be able to inspect and
// amend the registry even from an address that is itself blocked.
var blocklistExemptPrefixes = []string{
	"/api/v1/blocked",
	"/health",
}

// BlockedIPGate rejects every request originating from a blocked address
// before it reaches a handler. The decision engine re-checks the registry
// itself, so the gate is a fast path, not the source of truth.
func BlockedIPGate(checker BlocklistChecker, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range blocklistExemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			clientIP := pkghttp.ExtractClientIP(r, ipConfig)

			entry, err := checker.IsBlocked(r.Context(), clientIP)
			if err != nil {
				// Fail open: a registry outage must not take down logins for
				// every address.
				logger.Error("blocklist gate check failed",
					slog.String("ip_address", clientIP),
					slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			if entry != nil {
				logger.Warn("request from blocked ip rejected",
					slog.String("ip_address", clientIP),
					slog.String("path", r.URL.Path),
					slog.String("reason", entry.Reason))
				pkghttp.WriteErrorWithDetails(w, http.StatusForbidden,
					"ip_blocked", "Access denied: your IP address has been blocked due to suspicious activity.", entry.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
