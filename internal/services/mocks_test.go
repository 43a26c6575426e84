package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dynastyacademy/ledger/internal/models"
)

type MockTrustProvider struct {
	mock.Mock
}

func (m *MockTrustProvider) TrustScore(ctx context.Context, instructorID string) (int, error) {
	args := m.Called(ctx, instructorID)
	return args.Int(0), args.Error(1)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogTransfer(refID, idempotencyKey, currency string, gross int64, status string) {
	m.Called(refID, idempotencyKey, currency, gross, status)
}

func (m *MockAuditLogger) LogError(idempotencyKey string, err error) {
	m.Called(idempotencyKey, err)
}

func (m *MockAuditLogger) LogOperation(refID, operation, details string) {
	m.Called(refID, operation, details)
}

// newQuietAuditor accepts every call.
func newQuietAuditor() *MockAuditLogger {
	a := &MockAuditLogger{}
	a.On("LogTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	a.On("LogError", mock.Anything, mock.Anything).Maybe()
	a.On("LogOperation", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return a
}

// stubAccounts lets a test script each AccountRepository call.
type stubAccounts struct {
	findByKey func(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error)
	create    func(ctx context.Context, account *models.Account) error
}

func (s *stubAccounts) FindByKey(ctx context.Context, ownerID *string, kind models.AccountKind, currency string) (*models.Account, error) {
	return s.findByKey(ctx, ownerID, kind, currency)
}

func (s *stubAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	panic("not used")
}

func (s *stubAccounts) GetByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	panic("not used")
}

func (s *stubAccounts) Create(ctx context.Context, account *models.Account) error {
	return s.create(ctx, account)
}
