package services

import (
	"context"
	"time"

	"github.com/websqlsentinel/sentinel/internal/models"
)

// Shared mocks and fixtures for service tests. Function fields default to
// zero values; tests set only what they need.

// MockUserRepository implements UserRepository and UserFinder
type MockUserRepository struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return user, nil
}

// MockLoginAttemptRepository implements AttemptRecorder and AttemptReader
type MockLoginAttemptRepository struct {
	RecordFunc     func(ctx context.Context, attempt *models.LoginAttempt) error
	ListByUserFunc func(ctx context.Context, userID string) ([]*models.LoginAttempt, error)

	Recorded []*models.LoginAttempt
}

func (m *MockLoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, attempt); err != nil {
			return err
		}
	}
	attempt.ID = int64(len(m.Recorded) + 1)
	m.Recorded = append(m.Recorded, attempt)
	return nil
}

func (m *MockLoginAttemptRepository) ListByUser(ctx context.Context, userID string) ([]*models.LoginAttempt, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return m.Recorded, nil
}

// MockIPRegistry implements IPRegistry
type MockIPRegistry struct {
	IsBlockedFunc func(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
	BlockFunc     func(ctx context.Context, ipAddress, reason string, expiresAt *time.Time) (*models.BlockedIP, error)

	Blocked []string
}

func (m *MockIPRegistry) IsBlocked(ctx context.Context, ipAddress string) (*models.BlockedIP, error) {
	if m.IsBlockedFunc != nil {
		return m.IsBlockedFunc(ctx, ipAddress)
	}
	return nil, nil
}

func (m *MockIPRegistry) Block(ctx context.Context, ipAddress, reason string, expiresAt *time.Time) (*models.BlockedIP, error) {
	m.Blocked = append(m.Blocked, ipAddress)
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, ipAddress, reason, expiresAt)
	}
	return &models.BlockedIP{IPAddress: ipAddress, Reason: reason, BlockedAt: time.Now().UTC(), ExpiresAt: expiresAt}, nil
}

// MockBlockedIPRepository implements BlockedIPRepository
type MockBlockedIPRepository struct {
	GetByAddressFunc func(ctx context.Context, ipAddress string) (*models.BlockedIP, error)
	InsertFunc       func(ctx context.Context, entry *models.BlockedIP) error
	DeleteFunc       func(ctx context.Context, ipAddress string) (bool, error)
	ListFunc         func(ctx context.Context) ([]*models.BlockedIP, error)
}

func (m *MockBlockedIPRepository) GetByAddress(ctx context.Context, ipAddress string) (*models.BlockedIP, error) {
	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, ipAddress)
	}
	return nil, models.ErrNotFound
}

func (m *MockBlockedIPRepository) Insert(ctx context.Context, entry *models.BlockedIP) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	return nil
}

func (m *MockBlockedIPRepository) Delete(ctx context.Context, ipAddress string) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ipAddress)
	}
	return false, nil
}

func (m *MockBlockedIPRepository) List(ctx context.Context) ([]*models.BlockedIP, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockAlertService implements AlertService; sends are signalled on Sent so
// tests can wait for the background dispatch.
type MockAlertService struct {
	SendFunc func(ctx context.Context, user *models.User, attemptTime time.Time, ipAddress string) error
	Sent     chan string
}

func NewMockAlertService() *MockAlertService {
	return &MockAlertService{Sent: make(chan string, 8)}
}

func (m *MockAlertService) SendSecurityAlert(ctx context.Context, user *models.User, attemptTime time.Time, ipAddress string) error {
	var err error
	if m.SendFunc != nil {
		err = m.SendFunc(ctx, user, attemptTime, ipAddress)
	}
	if m.Sent != nil {
		m.Sent <- user.Email
	}
	return err
}

// MockSessionIssuer implements SessionIssuer
type MockSessionIssuer struct {
	GenerateFunc func(userID, email string) (string, error)
}

func (m *MockSessionIssuer) GenerateSessionToken(userID, email string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID, email)
	}
	return "test-session-token", nil
}

// NewTestUser creates a user fixture with a bcrypt hash of the given password
func NewTestUser(id, email, passwordHash string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           id,
		Email:        email,
		Username:     "testuser",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
