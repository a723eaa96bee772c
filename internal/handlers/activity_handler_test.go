package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websqlsentinel/sentinel/internal/auth"
	"github.com/websqlsentinel/sentinel/internal/models"
	"github.com/websqlsentinel/sentinel/internal/services"
)

type mockActivity struct {
	SummaryFunc func(ctx context.Context, userID string) (*services.ActivitySummary, error)
}

func (m *mockActivity) Summary(ctx context.Context, userID string) (*services.ActivitySummary, error) {
	return m.SummaryFunc(ctx, userID)
}

func requestWithClaims(userID string) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/activity", nil)
	claims := &models.SessionClaims{UserID: userID, Email: "alice@example.com"}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

func TestActivityHandler_GetActivity(t *testing.T) {
	now := time.Now().UTC()
	h := NewActivityHandler(&mockActivity{
		SummaryFunc: func(ctx context.Context, userID string) (*services.ActivitySummary, error) {
			assert.Equal(t, "user-1", userID)
			return &services.ActivitySummary{
				Attempts: []*models.LoginAttempt{
					{ID: 2, UserID: userID, Status: models.AttemptStatusFailed, IsSuspicious: true, IPAddress: "203.0.113.9", Timestamp: now},
					{ID: 1, UserID: userID, Status: models.AttemptStatusSuccess, IPAddress: "203.0.113.9", Timestamp: now.Add(-time.Hour)},
				},
				BlockedIPs: []*models.BlockedIP{
					{IPAddress: "198.51.100.7", Reason: models.BlockReasonMalicious, BlockedAt: now},
				},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.GetActivity(w, requestWithClaims("user-1"))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ActivityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attempts, 2)
	assert.Equal(t, int64(2), resp.Attempts[0].ID)
	assert.True(t, resp.Attempts[0].IsSuspicious)
	require.Len(t, resp.BlockedIPs, 1)
	assert.Equal(t, "198.51.100.7", resp.BlockedIPs[0].IPAddress)
}

func TestActivityHandler_GetActivity_EmptyHistory(t *testing.T) {
	h := NewActivityHandler(&mockActivity{
		SummaryFunc: func(ctx context.Context, userID string) (*services.ActivitySummary, error) {
			return &services.ActivitySummary{}, nil
		},
	})

	w := httptest.NewRecorder()
	h.GetActivity(w, requestWithClaims("user-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	// Empty collections serialize as [], not null
	assert.Contains(t, w.Body.String(), `"login_attempts":[]`)
	assert.Contains(t, w.Body.String(), `"blocked_ips":[]`)
}

func TestActivityHandler_GetActivity_NoSession(t *testing.T) {
	h := NewActivityHandler(&mockActivity{})

	req := httptest.NewRequest("GET", "/api/v1/activity", nil)
	w := httptest.NewRecorder()

	h.GetActivity(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivityHandler_GetActivity_ServiceError(t *testing.T) {
	h := NewActivityHandler(&mockActivity{
		SummaryFunc: func(ctx context.Context, userID string) (*services.ActivitySummary, error) {
			return nil, models.ErrInternalServer
		},
	})

	w := httptest.NewRecorder()
	h.GetActivity(w, requestWithClaims("user-1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
