package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, title, description, file_name, file_size, file_type, storage_path, category, tags, is_public, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var (
		d           model.Document
		description sql.NullString
		category    sql.NullString
		tags        sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Title,
		&description,
		&d.FileName,
		&d.FileSize,
		&d.FileType,
		&d.StoragePath,
		&category,
		&tags,
		&d.IsPublic,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Description = description.String
	d.Category = category.String
	d.Tags = splitTags(tags)
	return &d, nil
}

// CreateWithOwner inserts the document row and its owner grant in one transaction.
func (r *DocumentPostgres) CreateWithOwner(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const qDoc = `
		INSERT INTO documents (id, owner_id, title, description, file_name, file_size, file_type, storage_path, category, tags, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + documentColumns
	const qGrant = `
		INSERT INTO document_access (document_id, user_id, permission, granted_at)
		VALUES ($1, $2, $3, $4)
	`

	var out *model.Document
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, qDoc,
			doc.ID,
			doc.OwnerID,
			doc.Title,
			nullable(doc.Description),
			doc.FileName,
			doc.FileSize,
			doc.FileType,
			doc.StoragePath,
			nullable(doc.Category),
			joinTags(doc.Tags),
			doc.IsPublic,
			doc.CreatedAt,
			doc.UpdatedAt,
		)
		stored, err := scanDocument(row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, qGrant, stored.ID, stored.OwnerID, model.PermissionOwner, stored.CreatedAt); err != nil {
			return err
		}
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Patch updates only the supplied fields and always sets updated_at.
func (r *DocumentPostgres) Patch(ctx context.Context, id string, patch model.DocumentPatch, updatedAt time.Time) error {
	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}
	n := 2

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", nullable(*patch.Description))
	}
	if patch.Category != nil {
		add("category", nullable(*patch.Category))
	}
	if patch.Tags != nil {
		add("tags", joinTags(*patch.Tags))
	}
	if patch.IsPublic != nil {
		add("is_public", *patch.IsPublic)
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(sets, ", "), n)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes grants and offers before the document row so no reader
// can observe a document with dangling access rows. The document row goes last.
func (r *DocumentPostgres) DeleteCascade(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_access WHERE document_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_shares WHERE document_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
		return err
	})
}

// ListByOwner returns all documents owned by the given principal.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	return r.queryDocuments(ctx, q, ownerID)
}

// ListSharedWith returns documents reachable through a non-owner grant whose
// backing offer has not expired.
func (r *DocumentPostgres) ListSharedWith(ctx context.Context, userID string, now time.Time) ([]model.Document, error) {
	q := `
		SELECT ` + prefixed(documentColumns, "d.") + `
		FROM documents d
		JOIN document_access a ON a.document_id = d.id
		LEFT JOIN document_shares s ON s.document_id = a.document_id AND s.shared_with = a.user_id
		WHERE a.user_id = $1
		  AND a.permission <> 'owner'
		  AND (s.expires_at IS NULL OR s.expires_at > $2)
		ORDER BY d.created_at DESC, d.id DESC
	`
	return r.queryDocuments(ctx, q, userID, now)
}

// ListSharedBy returns the distinct documents referenced by the principal's
// outstanding share offers.
func (r *DocumentPostgres) ListSharedBy(ctx context.Context, userID string) ([]model.Document, error) {
	q := `
		SELECT DISTINCT ` + prefixed(documentColumns, "d.") + `
		FROM documents d
		JOIN document_shares s ON s.document_id = d.id
		WHERE s.shared_by = $1
		ORDER BY d.created_at DESC, d.id DESC
	`
	return r.queryDocuments(ctx, q, userID)
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}
