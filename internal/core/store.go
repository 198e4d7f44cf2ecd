package core

import "context"

// DefaultPageSize is the fixed page size for lead listings.
const DefaultPageSize = 10

// LeadFilter narrows a lead listing. Zero values mean "no filter".
type LeadFilter struct {
	Search       string // substring of name, email (case-insensitive) or phone
	City         City
	PropertyType PropertyType
	Status       Status
	Timeline     Timeline
	Page         int // 1-based
}

// Offset returns the row offset for the filter's page.
func (f LeadFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * DefaultPageSize
}

// LeadPage is one page of a listing.
type LeadPage struct {
	Leads      []Lead `json:"leads"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// Store is the persistence collaborator. Implementations must treat email
// comparisons case-insensitively and scope every lookup by owner. Email
// uniqueness is not assumed at the storage layer.
type Store interface {
	// ExistingEmails returns the subset of emails (lower-cased) already used
	// by leads of ownerID. It is a single round trip regardless of input size.
	ExistingEmails(ctx context.Context, ownerID string, emails []string) (map[string]bool, error)

	// EmailTaken reports whether another lead of ownerID uses email.
	// excludeID, if non-empty, is ignored in the check.
	EmailTaken(ctx context.Context, ownerID, email, excludeID string) (bool, error)

	// GetLead returns ErrNotFound unless id exists and belongs to ownerID.
	GetLead(ctx context.Context, ownerID, id string) (Lead, error)

	// ListLeads returns a page ordered by UpdatedAt descending and the
	// total number of matching leads.
	ListLeads(ctx context.Context, ownerID string, filter LeadFilter) ([]Lead, int, error)

	// ListHistory returns a lead's audit entries, newest first.
	ListHistory(ctx context.Context, leadID string) ([]AuditEntry, error)

	// DeleteLead removes a lead and its audit trail. ErrNotFound if absent.
	DeleteLead(ctx context.Context, ownerID, id string) error

	// WithTx runs fn in one transaction. Any error returned by fn, or a
	// panic, rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of a Store, valid only inside WithTx.
type Tx interface {
	CreateLead(ctx context.Context, lead Lead) error
	UpdateLead(ctx context.Context, lead Lead) error
	AppendAudit(ctx context.Context, entry AuditEntry) error
}
