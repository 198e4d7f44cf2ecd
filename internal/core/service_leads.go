package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/logging"
)

// CreateLead validates in and stores it together with a created audit entry.
func (s *Service) CreateLead(ctx context.Context, user CurrentUser, in Record) (Lead, error) {
	if err := requireUser(user); err != nil {
		return Lead{}, err
	}

	rec := NormalizeRecord(in)
	if errs := ValidateRecord(rec); len(errs) > 0 {
		return Lead{}, ValidationErrors(errs)
	}
	if err := s.checkEmail(ctx, user.ID, rec.Email, ""); err != nil {
		return Lead{}, err
	}

	now := s.timestamp()
	lead := Lead{
		ID:        s.newID(),
		OwnerID:   user.ID,
		Record:    rec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateLead(ctx, lead); err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		entry := NewAuditEntry(lead.ID, user.ID, now, CreatedPayload{Snapshot: rec.Clone()})
		return tx.AppendAudit(ctx, entry)
	})
	if err != nil {
		return Lead{}, err
	}

	s.metrics.IncrementMutation(string(ActionCreated), 1)
	logging.FromContext(ctx).Info("lead created", "user_id", user.ID, "lead_id", lead.ID)
	return lead, nil
}

// UpdateLead replaces the tracked fields of an owned lead and records the
// field-level diff. An update that changes nothing still writes an entry
// with an empty change set.
func (s *Service) UpdateLead(ctx context.Context, user CurrentUser, id string, in Record) (Lead, error) {
	if err := requireUser(user); err != nil {
		return Lead{}, err
	}

	prev, err := s.store.GetLead(ctx, user.ID, id)
	if err != nil {
		return Lead{}, err
	}

	// Status defaults to NEW only on create. An update that leaves it out
	// keeps the current status.
	if clean(string(in.Status)) == "" {
		in.Status = prev.Status
	}
	rec := NormalizeRecord(in)
	if errs := ValidateRecord(rec); len(errs) > 0 {
		return Lead{}, ValidationErrors(errs)
	}
	if !strings.EqualFold(rec.Email, prev.Email) {
		if err := s.checkEmail(ctx, user.ID, rec.Email, id); err != nil {
			return Lead{}, err
		}
	}

	changes := Diff(prev.Record, rec)
	next := prev
	next.Record = rec
	next.UpdatedAt = s.timestamp()

	err = s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.UpdateLead(ctx, next); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		entry := NewAuditEntry(next.ID, user.ID, next.UpdatedAt, UpdatedPayload{Changes: changes})
		return tx.AppendAudit(ctx, entry)
	})
	if err != nil {
		return Lead{}, err
	}

	s.metrics.IncrementMutation(string(ActionUpdated), 1)
	logging.FromContext(ctx).Info("lead updated", "user_id", user.ID, "lead_id", id, "changed_fields", len(changes))
	return next, nil
}

// DeleteLead removes an owned lead and its audit trail.
func (s *Service) DeleteLead(ctx context.Context, user CurrentUser, id string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := s.store.DeleteLead(ctx, user.ID, id); err != nil {
		return err
	}
	s.metrics.IncrementMutation("deleted", 1)
	logging.FromContext(ctx).Info("lead deleted", "user_id", user.ID, "lead_id", id)
	return nil
}

// GetLead returns an owned lead.
func (s *Service) GetLead(ctx context.Context, user CurrentUser, id string) (Lead, error) {
	if err := requireUser(user); err != nil {
		return Lead{}, err
	}
	return s.store.GetLead(ctx, user.ID, id)
}

// ListLeads returns one page of the owner's leads, most recently updated
// first.
func (s *Service) ListLeads(ctx context.Context, user CurrentUser, filter LeadFilter) (LeadPage, error) {
	if err := requireUser(user); err != nil {
		return LeadPage{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter = NormalizeFilter(filter)

	leads, total, err := s.store.ListLeads(ctx, user.ID, filter)
	if err != nil {
		return LeadPage{}, fmt.Errorf("list leads: %w", err)
	}
	if leads == nil {
		leads = []Lead{}
	}

	return LeadPage{
		Leads:      leads,
		Page:       filter.Page,
		PageSize:   DefaultPageSize,
		Total:      total,
		TotalPages: (total + DefaultPageSize - 1) / DefaultPageSize,
	}, nil
}

// History returns the audit trail of an owned lead, newest first.
func (s *Service) History(ctx context.Context, user CurrentUser, leadID string) ([]AuditEntry, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if _, err := s.store.GetLead(ctx, user.ID, leadID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListHistory(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

// checkEmail returns ErrEmailTaken when another of the owner's leads uses
// email. Empty emails are exempt.
func (s *Service) checkEmail(ctx context.Context, ownerID, email, excludeID string) error {
	if email == "" {
		return nil
	}
	taken, err := s.store.EmailTaken(ctx, ownerID, email, excludeID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}
