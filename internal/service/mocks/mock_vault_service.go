package mocks

import (
	"context"
	"io"
	"time"

	"docvault/internal/model"
	"docvault/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockVaultService struct {
	mock.Mock
}

func (m *MockVaultService) Upload(ctx context.Context, principal string, r io.Reader, meta service.UploadMeta) (*model.Document, error) {
	args := m.Called(ctx, principal, r, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockVaultService) Create(ctx context.Context, principal string, meta service.UploadMeta, storageRef string) (*model.Document, error) {
	args := m.Called(ctx, principal, meta, storageRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockVaultService) Get(ctx context.Context, principal, documentID string) (*model.Document, error) {
	args := m.Called(ctx, principal, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockVaultService) DownloadURL(ctx context.Context, principal, documentID string) (string, error) {
	args := m.Called(ctx, principal, documentID)
	return args.String(0), args.Error(1)
}

func (m *MockVaultService) Update(ctx context.Context, principal, documentID string, patch model.DocumentPatch) error {
	args := m.Called(ctx, principal, documentID, patch)
	return args.Error(0)
}

func (m *MockVaultService) Delete(ctx context.Context, principal, documentID string) error {
	args := m.Called(ctx, principal, documentID)
	return args.Error(0)
}

func (m *MockVaultService) Share(ctx context.Context, principal, documentID, recipient string, permission model.Permission, expiresAt *time.Time) error {
	args := m.Called(ctx, principal, documentID, recipient, permission, expiresAt)
	return args.Error(0)
}

func (m *MockVaultService) Revoke(ctx context.Context, principal, documentID, recipient string) error {
	args := m.Called(ctx, principal, documentID, recipient)
	return args.Error(0)
}

func (m *MockVaultService) ListAccessible(ctx context.Context, principal string) (*model.AccessibleDocuments, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessibleDocuments), args.Error(1)
}

func (m *MockVaultService) ListSharedBy(ctx context.Context, principal string) ([]model.Document, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
