package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// AccessRepository defines data access for the access ledger (grants) and the
// share registry (offers). The two tables are only ever written together: a
// share upserts one row in each, a revoke deletes one row from each, inside a
// single transaction owned by the implementation.
type AccessRepository interface {
	// FindGrant returns the grant in force for (documentID, userID), treating a
	// non-owner grant whose backing offer expired before `now` as absent.
	// Returns nil and a no-rows error when no usable grant exists.
	FindGrant(ctx context.Context, documentID, userID string, now time.Time) (*model.AccessGrant, error)

	// Share upserts the offer row and the matching grant row in one
	// transaction. Re-sharing the same (document, recipient) replaces the
	// existing pair rather than stacking a second one.
	Share(ctx context.Context, offer *model.ShareOffer) error

	// Revoke deletes the non-owner grant and the offer for
	// (documentID, recipient) in one transaction. Reports whether an offer
	// existed; revoking an absent pair is a no-op, not an error.
	Revoke(ctx context.Context, documentID, recipient string) (bool, error)
}
