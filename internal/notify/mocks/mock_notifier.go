package mocks

import (
	"context"

	"docvault/internal/notify"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, ev notify.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
