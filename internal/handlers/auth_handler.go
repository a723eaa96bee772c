package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/websqlsentinel/sentinel/internal/models"
	"github.com/websqlsentinel/sentinel/internal/services"
	pkgauth "github.com/websqlsentinel/sentinel/pkg/auth"
	pkghttp "github.com/websqlsentinel/sentinel/pkg/http"
)

// LoginEvaluator defines the interface to the login decision engine
type LoginEvaluator interface {
	EvaluateLogin(ctx context.Context, identifier, secret, clientIP string) (*services.Evaluation, error)
}

// UserRegistrar defines the interface for account registration
type UserRegistrar interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
}

// AuthHandler handles login and registration HTTP requests
type AuthHandler struct {
	engine   LoginEvaluator
	users    UserRegistrar
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(engine LoginEvaluator, users UserRegistrar, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		engine:   engine,
		users:    users,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
}

// Response DTOs

// UserResponse is the public view of a user account
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// LoginResponse represents a granted login
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

// Login evaluates one login submission and maps the terminal outcome to HTTP.
// The submitted fields pass through to the engine untouched: the engine scores
// the raw payload, so no sanitization happens here. Email format is not
// enforced either — a malformed identifier is exactly the kind of input the
// classifier needs to see.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)

	eval, err := h.engine.EvaluateLogin(r.Context(), req.Email, req.Password, clientIP)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch eval.Outcome {
	case services.OutcomeGranted:
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
			AccessToken: eval.SessionToken,
			TokenType:   "Bearer",
			User: UserResponse{
				ID:       eval.User.ID,
				Email:    eval.User.Email,
				Username: eval.User.Username,
			},
		})
	case services.OutcomeRejectedBlocked:
		pkghttp.WriteErrorWithDetails(w, http.StatusForbidden,
			"ip_blocked", "Access denied: your IP address has been blocked due to suspicious activity.", eval.BlockReason)
	case services.OutcomeRejectedMalicious:
		pkghttp.WriteError(w, http.StatusForbidden,
			"malicious_input", "Access denied: malicious input detected. Your IP address has been blocked.")
	default:
		// Unknown identifier and wrong password are indistinguishable to the
		// caller.
		pkghttp.WriteUnauthorized(w, "Invalid email or password.")
	}
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
	})
}

// Logout ends the client session. Session tokens are stateless, so the server
// has nothing to revoke; the endpoint exists so clients have a uniform flow.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
