package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for document metadata using SQL queries only.
// No business logic here — strictly persistence operations. Multi-row effects
// (owner grant on create, dependent rows on delete) are applied inside a single
// transaction by the implementation.
type DocumentRepository interface {
	// CreateWithOwner inserts the document row and its owner grant in one
	// transaction. Neither row is visible unless both inserts succeed.
	// Returns the stored document (may include values set by the DB).
	CreateWithOwner(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Patch updates only the non-nil fields of the patch and sets updated_at.
	Patch(ctx context.Context, id string, patch model.DocumentPatch, updatedAt time.Time) error

	// DeleteCascade removes every access grant and share offer referencing the
	// document, then the document row itself, in one transaction. Returns nil
	// if the document did not exist.
	DeleteCascade(ctx context.Context, id string) error

	// ListByOwner returns all documents owned by the given principal.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// ListSharedWith returns all documents the principal can reach through a
	// non-owner grant whose backing offer has not expired at `now`.
	ListSharedWith(ctx context.Context, userID string, now time.Time) ([]model.Document, error)

	// ListSharedBy returns the distinct documents for which the principal has
	// at least one still-existing share offer.
	ListSharedBy(ctx context.Context, userID string) ([]model.Document, error)
}
