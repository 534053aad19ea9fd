package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// AccessPostgres is a PostgreSQL implementation of repository.AccessRepository.
// Grant and offer rows for the same (document, recipient) are always written
// in one transaction so readers never see one without the other.
type AccessPostgres struct {
	db *sql.DB
}

// NewAccessPostgres creates a new AccessPostgres repository.
func NewAccessPostgres(db *sql.DB) *AccessPostgres {
	return &AccessPostgres{db: db}
}

var _ repository.AccessRepository = (*AccessPostgres)(nil)

// FindGrant returns the grant in force for (documentID, userID). A non-owner
// grant counts only while its backing offer is unexpired; the owner grant has
// no offer and never expires.
func (r *AccessPostgres) FindGrant(ctx context.Context, documentID, userID string, now time.Time) (*model.AccessGrant, error) {
	const q = `
		SELECT a.document_id, a.user_id, a.permission, a.granted_at
		FROM document_access a
		LEFT JOIN document_shares s ON s.document_id = a.document_id AND s.shared_with = a.user_id
		WHERE a.document_id = $1
		  AND a.user_id = $2
		  AND (a.permission = 'owner' OR s.expires_at IS NULL OR s.expires_at > $3)
	`
	row := r.db.QueryRowContext(ctx, q, documentID, userID, now)
	var g model.AccessGrant
	if err := row.Scan(&g.DocumentID, &g.UserID, &g.Permission, &g.GrantedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// Share upserts the offer row and the matching grant row in one transaction.
// Re-sharing replaces permission and expiry on both rows instead of stacking.
// The grant upsert refuses to touch an owner row, so even a stray offer keyed
// to the owner can never demote the owner grant.
func (r *AccessPostgres) Share(ctx context.Context, offer *model.ShareOffer) error {
	const qOffer = `
		INSERT INTO document_shares (id, document_id, shared_by, shared_with, permission, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, shared_with)
		DO UPDATE SET shared_by = EXCLUDED.shared_by,
		              permission = EXCLUDED.permission,
		              expires_at = EXCLUDED.expires_at,
		              created_at = EXCLUDED.created_at
	`
	const qGrant = `
		INSERT INTO document_access (document_id, user_id, permission, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, user_id)
		DO UPDATE SET permission = EXCLUDED.permission,
		              granted_at = EXCLUDED.granted_at
		WHERE document_access.permission <> 'owner'
	`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var expires any
		if offer.ExpiresAt != nil {
			expires = *offer.ExpiresAt
		}
		if _, err := tx.ExecContext(ctx, qOffer,
			offer.ID,
			offer.DocumentID,
			offer.SharedBy,
			offer.SharedWith,
			offer.Permission,
			expires,
			offer.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, qGrant,
			offer.DocumentID,
			offer.SharedWith,
			offer.Permission,
			offer.CreatedAt,
		)
		return err
	})
}

// Revoke deletes the non-owner grant and the offer for (documentID, recipient)
// in one transaction. The owner grant is never deletable through this path.
func (r *AccessPostgres) Revoke(ctx context.Context, documentID, recipient string) (bool, error) {
	var offerExisted bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM document_access WHERE document_id = $1 AND user_id = $2 AND permission <> 'owner'`,
			documentID, recipient,
		); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM document_shares WHERE document_id = $1 AND shared_with = $2`,
			documentID, recipient,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		offerExisted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return offerExisted, nil
}
