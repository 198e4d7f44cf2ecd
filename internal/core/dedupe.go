package core

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// candidate is a row that passed validation and awaits the store check.
type candidate struct {
	row    ImportRow
	record Record
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// batchEmails is the set of emails seen so far in one import. It lives only
// for the duration of a single ImportLeads call.
type batchEmails map[string]struct{}

// claim records the row's email. If the email was already claimed by an
// earlier row it returns the duplicate error instead. Rows without an email
// never collide.
func (b batchEmails) claim(row ImportRow, r Record) *ValidationError {
	key := emailKey(r.Email)
	if key == "" {
		return nil
	}
	if _, dup := b[key]; dup {
		return &ValidationError{
			Row:     row.Row,
			Field:   FieldEmail,
			Message: msgDuplicateFile,
			Value:   row.Raw(FieldEmail),
		}
	}
	b[key] = struct{}{}
	return nil
}

// resolveExisting drops candidates whose email already belongs to one of the
// owner's leads, using a single store lookup. With no emails to check the
// store is not consulted and every candidate is kept.
func (s *Service) resolveExisting(ctx context.Context, ownerID string, cands []candidate) ([]candidate, []ValidationError, error) {
	emails := make([]string, 0, len(cands))
	unique := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		key := emailKey(c.record.Email)
		if key == "" {
			continue
		}
		if _, ok := unique[key]; !ok {
			unique[key] = struct{}{}
			emails = append(emails, key)
		}
	}

	var existing map[string]bool
	if len(emails) > 0 {
		ctx, span := s.tracer.Start(ctx, "core.resolveExisting")
		span.SetAttributes(attribute.Int("emails", len(emails)))
		found, err := s.store.ExistingEmails(ctx, ownerID, emails)
		span.End()
		if err != nil {
			return nil, nil, fmt.Errorf("lookup existing emails: %w", err)
		}
		existing = found
	}

	kept := make([]candidate, 0, len(cands))
	var errs []ValidationError
	for _, c := range cands {
		if existing[emailKey(c.record.Email)] {
			errs = append(errs, ValidationError{
				Row:     c.row.Row,
				Field:   FieldEmail,
				Message: msgDuplicateStore,
				Value:   c.row.Raw(FieldEmail),
			})
			continue
		}
		kept = append(kept, c)
	}
	return kept, errs, nil
}
