package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websqlsentinel/sentinel/internal/models"
	"github.com/websqlsentinel/sentinel/internal/services"
)

type mockEngine struct {
	EvaluateLoginFunc func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error)
}

func (m *mockEngine) EvaluateLogin(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
	return m.EvaluateLoginFunc(ctx, identifier, secret, clientIP)
}

type mockRegistrar struct {
	RegisterFunc func(ctx context.Context, email, username, password string) (*models.User, error)
}

func (m *mockRegistrar) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	return m.RegisterFunc(ctx, email, username, password)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()

	handler(w, req)
	return w
}

func TestAuthHandler_Login_Granted(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			assert.Equal(t, "alice@example.com", identifier)
			assert.Equal(t, "password123", secret)
			assert.Equal(t, "203.0.113.9", clientIP)
			return &services.Evaluation{
				Outcome:      services.OutcomeGranted,
				SessionToken: "session-token",
				User:         &models.User{ID: "user-1", Email: "alice@example.com", Username: "alice"},
			}, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-token", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestAuthHandler_Login_RejectedCredentials(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			return &services.Evaluation{Outcome: services.OutcomeRejectedCredentials}, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password.")
}

func TestAuthHandler_Login_RejectedMalicious(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			return &services.Evaluation{
				Outcome:     services.OutcomeRejectedMalicious,
				BlockReason: models.BlockReasonMalicious,
			}, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "' OR '1'='1' --",
		Password: "password123",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "malicious")
}

func TestAuthHandler_Login_RejectedBlocked(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			return &services.Evaluation{
				Outcome:     services.OutcomeRejectedBlocked,
				BlockReason: models.BlockReasonMalicious,
			}, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "blocked")
}

func TestAuthHandler_Login_MalformedIdentifierStillEvaluated(t *testing.T) {
	// The login path must not reject non-email identifiers up front; the raw
	// field is the classifier's input
	var evaluated string
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			evaluated = identifier
			return &services.Evaluation{Outcome: services.OutcomeRejectedCredentials}, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "admin'--",
		Password: "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "admin'--", evaluated)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			t.Fatal("engine should not be invoked for invalid requests")
			return nil, nil
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{Email: "alice@example.com"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockEngine{}, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login_EngineError(t *testing.T) {
	engine := &mockEngine{
		EvaluateLoginFunc: func(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error) {
			return nil, models.ErrInternalServer
		},
	}
	h := NewAuthHandler(engine, nil, nil)

	w := postJSON(t, h.Login, "/api/v1/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	registrar := &mockRegistrar{
		RegisterFunc: func(ctx context.Context, email, username, password string) (*models.User, error) {
			return &models.User{ID: "user-1", Email: email, Username: username}, nil
		},
	}
	h := NewAuthHandler(nil, registrar, nil)

	w := postJSON(t, h.Register, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.ID)
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	registrar := &mockRegistrar{
		RegisterFunc: func(ctx context.Context, email, username, password string) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewAuthHandler(nil, registrar, nil)

	w := postJSON(t, h.Register, "/api/v1/auth/register", RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Register_InvalidEmail(t *testing.T) {
	h := NewAuthHandler(nil, &mockRegistrar{}, nil)

	w := postJSON(t, h.Register, "/api/v1/auth/register", RegisterRequest{
		Email:    "not-an-email",
		Username: "alice",
		Password: "password123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := NewAuthHandler(nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
