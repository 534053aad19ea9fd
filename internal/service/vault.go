package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/notify"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// AnonymousPrincipal is the marker the identity boundary supplies when no
// authenticated caller is present.
const AnonymousPrincipal = "anonymous"

var (
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrIDRequired        = errors.New("id is required")
	ErrNotFound          = errors.New("document not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrReaderNil         = errors.New("reader is nil")
	ErrTitleRequired     = errors.New("title is required")
	ErrFileNameRequired  = errors.New("file name is required")
	ErrStorageRefMissing = errors.New("storage reference is required")
	ErrRecipientRequired = errors.New("recipient is required")
	ErrInvalidPermission = errors.New("permission must be view or edit")
	ErrSelfShare         = errors.New("cannot share a document with its owner")
	ErrTagHasComma       = errors.New("tags must not contain commas")
)

// UploadMeta carries caller-supplied document metadata for Create/Upload.
type UploadMeta struct {
	Title       string
	Description string
	FileName    string
	FileSize    int64
	FileType    string
	Category    string
	Tags        []string
	IsPublic    bool
}

// VaultService is the access-control engine. It is the only component that
// mutates the access ledger and the share registry, and it owns the
// consistency invariants between them and the document store.
type VaultService interface {
	// Upload streams the content to object storage, then records the document
	// and its owner grant; the stored blob is deleted again if the record fails.
	Upload(ctx context.Context, principal string, r io.Reader, meta UploadMeta) (*model.Document, error)

	// Create records a document for an already-confirmed storage reference,
	// inserting the document row and the owner grant as one atomic unit.
	Create(ctx context.Context, principal string, meta UploadMeta, storageRef string) (*model.Document, error)

	// Get returns the document if the principal owns it or holds an unexpired
	// grant on it. Every read/download/update path resolves through here.
	Get(ctx context.Context, principal, documentID string) (*model.Document, error)

	// DownloadURL resolves access, then mints a time-limited retrieval URL.
	DownloadURL(ctx context.Context, principal, documentID string) (string, error)

	// Update patches the supplied metadata fields. Owner only; an edit grant
	// does not unlock metadata changes.
	Update(ctx context.Context, principal, documentID string, patch model.DocumentPatch) error

	// Delete removes the blob, then every grant, offer and the document row.
	// Owner only.
	Delete(ctx context.Context, principal, documentID string) error

	// Share grants the recipient view or edit access and records the offer,
	// replacing any prior share for the same recipient.
	Share(ctx context.Context, principal, documentID, recipient string, permission model.Permission, expiresAt *time.Time) error

	// Revoke withdraws the recipient's grant and offer. Idempotent.
	Revoke(ctx context.Context, principal, documentID, recipient string) error

	// ListAccessible returns the caller's own documents and those shared with them.
	ListAccessible(ctx context.Context, principal string) (*model.AccessibleDocuments, error)

	// ListSharedBy returns the distinct documents the caller has outstanding offers on.
	ListSharedBy(ctx context.Context, principal string) ([]model.Document, error)
}

// vaultService is a concrete implementation of VaultService.
type vaultService struct {
	store         storage.Storage
	docs          repository.DocumentRepository
	access        repository.AccessRepository
	notifier      notify.Notifier
	presignExpiry time.Duration
}

// NewVaultService constructs a new VaultService. The notifier is invoked
// after mutations commit and its result is never allowed to fail an operation.
func NewVaultService(store storage.Storage, docs repository.DocumentRepository, access repository.AccessRepository, notifier notify.Notifier, presignExpiry time.Duration) VaultService {
	return &vaultService{
		store:         store,
		docs:          docs,
		access:        access,
		notifier:      notifier,
		presignExpiry: presignExpiry,
	}
}

func authenticated(principal string) bool {
	return principal != "" && principal != AnonymousPrincipal
}

// normalizeTags trims each tag and drops empties. Tags are stored comma-joined,
// so a tag containing a comma would not round-trip and is rejected.
func normalizeTags(tags []string) ([]string, error) {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, ",") {
			return nil, ErrTagHasComma
		}
		out = append(out, t)
	}
	return out, nil
}

// retryOnConflict runs op, retrying exactly once when the backing store
// reports a concurrent-commit conflict. A second conflict surfaces.
func retryOnConflict(op func() error) error {
	err := op()
	if errors.Is(err, repository.ErrConflict) {
		err = op()
	}
	return err
}

func (s *vaultService) Upload(ctx context.Context, principal string, r io.Reader, meta UploadMeta) (*model.Document, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}
	if r == nil {
		return nil, ErrReaderNil
	}
	if meta.FileName == "" {
		return nil, ErrFileNameRequired
	}

	// Generate storage key using UUID + extension
	ext := filepath.Ext(meta.FileName)
	key := filepath.ToSlash(filepath.Join("documents", uuid.New().String()+ext))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        meta.FileSize,
		ContentType: meta.FileType,
		Metadata: map[string]string{
			"original-filename": meta.FileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	meta.FileSize = objInfo.Size

	doc, err := s.Create(ctx, principal, meta, objInfo.Key)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("record document failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, err
	}
	return doc, nil
}

func (s *vaultService) Create(ctx context.Context, principal string, meta UploadMeta, storageRef string) (*model.Document, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}
	if meta.Title == "" {
		return nil, ErrTitleRequired
	}
	if meta.FileName == "" {
		return nil, ErrFileNameRequired
	}
	if storageRef == "" {
		return nil, ErrStorageRefMissing
	}
	tags, err := normalizeTags(meta.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          uuid.New().String(),
		OwnerID:     principal,
		Title:       meta.Title,
		Description: meta.Description,
		FileName:    meta.FileName,
		FileSize:    meta.FileSize,
		FileType:    meta.FileType,
		StoragePath: storageRef,
		Category:    meta.Category,
		Tags:        tags,
		IsPublic:    meta.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var stored *model.Document
	err = retryOnConflict(func() error {
		var err error
		stored, err = s.docs.CreateWithOwner(ctx, doc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}
	return stored, nil
}

func (s *vaultService) Get(ctx context.Context, principal, documentID string) (*model.Document, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}
	if documentID == "" {
		return nil, ErrIDRequired
	}

	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A grant must never outlive its document; a missing document is
			// NotFound regardless of any ledger row.
			return nil, ErrNotFound
		}
		return nil, err
	}

	if doc.OwnerID == principal {
		return doc, nil
	}

	// Expired offers make the grant count as absent.
	if _, err := s.access.FindGrant(ctx, documentID, principal, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	return doc, nil
}

func (s *vaultService) DownloadURL(ctx context.Context, principal, documentID string) (string, error) {
	doc, err := s.Get(ctx, principal, documentID)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return url, nil
}

func (s *vaultService) Update(ctx context.Context, principal, documentID string, patch model.DocumentPatch) error {
	if _, err := s.requireOwner(ctx, principal, documentID); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}
	if patch.Tags != nil {
		tags, err := normalizeTags(*patch.Tags)
		if err != nil {
			return err
		}
		patch.Tags = &tags
	}
	if err := s.docs.Patch(ctx, documentID, patch, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted between the ownership check and the patch.
			return ErrAccessDenied
		}
		return fmt.Errorf("patch document: %w", err)
	}
	return nil
}

func (s *vaultService) Delete(ctx context.Context, principal, documentID string) error {
	doc, err := s.requireOwner(ctx, principal, documentID)
	if err != nil {
		return err
	}

	// Blob first: ledger and registry rows are only removed once the blob is
	// gone, so a failed storage delete leaves the whole record intact for retry.
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}

	err = retryOnConflict(func() error {
		return s.docs.DeleteCascade(ctx, documentID)
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *vaultService) Share(ctx context.Context, principal, documentID, recipient string, permission model.Permission, expiresAt *time.Time) error {
	if recipient == "" {
		return ErrRecipientRequired
	}
	if !permission.Sharable() {
		return ErrInvalidPermission
	}

	doc, err := s.requireOwner(ctx, principal, documentID)
	if err != nil {
		return err
	}
	// The owner grant must never be rewritten by a share upsert.
	if recipient == doc.OwnerID {
		return ErrSelfShare
	}

	offer := &model.ShareOffer{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		SharedBy:   principal,
		SharedWith: recipient,
		Permission: permission,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	}
	err = retryOnConflict(func() error {
		return s.access.Share(ctx, offer)
	})
	if err != nil {
		return fmt.Errorf("share document: %w", err)
	}

	// Best-effort only; a delivery failure never re-fails the committed share.
	_ = s.notifier.Notify(ctx, notify.Event{
		Kind:            notify.KindShared,
		Recipient:       recipient,
		DocumentTitle:   doc.Title,
		ActingPrincipal: principal,
		Permission:      permission,
		ExpiresAt:       expiresAt,
	})
	return nil
}

func (s *vaultService) Revoke(ctx context.Context, principal, documentID, recipient string) error {
	if recipient == "" {
		return ErrRecipientRequired
	}

	doc, err := s.requireOwner(ctx, principal, documentID)
	if err != nil {
		return err
	}

	var offerExisted bool
	err = retryOnConflict(func() error {
		var err error
		offerExisted, err = s.access.Revoke(ctx, documentID, recipient)
		return err
	})
	if err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}

	if offerExisted {
		_ = s.notifier.Notify(ctx, notify.Event{
			Kind:            notify.KindRevoked,
			Recipient:       recipient,
			DocumentTitle:   doc.Title,
			ActingPrincipal: principal,
		})
	}
	return nil
}

func (s *vaultService) ListAccessible(ctx context.Context, principal string) (*model.AccessibleDocuments, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}

	owned, err := s.docs.ListByOwner(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	shared, err := s.docs.ListSharedWith(ctx, principal, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list shared: %w", err)
	}
	return &model.AccessibleDocuments{Owned: owned, SharedWithMe: shared}, nil
}

func (s *vaultService) ListSharedBy(ctx context.Context, principal string) ([]model.Document, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}
	docs, err := s.docs.ListSharedBy(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list shared by: %w", err)
	}
	return docs, nil
}

// requireOwner loads the document and checks ownership. A missing document and
// a foreign document both come back as ErrAccessDenied so an unauthorized
// caller probing arbitrary ids cannot tell whether the document exists.
func (s *vaultService) requireOwner(ctx context.Context, principal, documentID string) (*model.Document, error) {
	if !authenticated(principal) {
		return nil, ErrUnauthenticated
	}
	if documentID == "" {
		return nil, ErrIDRequired
	}

	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if doc.OwnerID != principal {
		return nil, ErrAccessDenied
	}
	return doc, nil
}
