package mocks

import (
	"context"
	"time"

	"docvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockAccessRepository struct {
	mock.Mock
}

func (m *MockAccessRepository) FindGrant(ctx context.Context, documentID, userID string, now time.Time) (*model.AccessGrant, error) {
	args := m.Called(ctx, documentID, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockAccessRepository) Share(ctx context.Context, offer *model.ShareOffer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockAccessRepository) Revoke(ctx context.Context, documentID, recipient string) (bool, error) {
	args := m.Called(ctx, documentID, recipient)
	return args.Bool(0), args.Error(1)
}
