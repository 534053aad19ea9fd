package model

import "time"

// Permission is the level of access a principal holds on a document.
type Permission string

const (
	PermissionOwner Permission = "owner"
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
)

// Sharable reports whether the permission may be given out through a share.
// Ownership is never sub-delegated.
func (p Permission) Sharable() bool {
	return p == PermissionView || p == PermissionEdit
}

// AccessGrant is one access-ledger row: the permission currently in force
// for a (document, principal) pair. At most one row exists per pair.
type AccessGrant struct {
	DocumentID string     `json:"document_id"`
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
	GrantedAt  time.Time  `json:"granted_at"`
}

// ShareOffer is one share-registry row: the administrative record of a
// sharing action. Each active offer pairs with exactly one non-owner grant
// for the same (document, recipient); the two are written and deleted together.
type ShareOffer struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	SharedBy   string     `json:"shared_by"`
	SharedWith string     `json:"shared_with"`
	Permission Permission `json:"permission"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AccessibleDocuments groups the result of listing everything a principal can reach.
type AccessibleDocuments struct {
	Owned        []Document `json:"owned"`
	SharedWithMe []Document `json:"shared_with_me"`
}
