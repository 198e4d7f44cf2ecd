// Package memory is an in-process core.Store. It backs the "memory" database
// driver used for local development and the service tests.
//
// Transactions are serialized behind one mutex. Writes are staged and only
// applied when the transaction function returns nil, so a failed transaction
// leaves no trace.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/leadbook/internal/core"
)

type auditRow struct {
	seq   int64
	entry core.AuditEntry
}

// Store holds leads and audit entries in maps.
type Store struct {
	mu      sync.RWMutex
	leads   map[string]core.Lead
	history map[string][]auditRow
	seq     int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		leads:   make(map[string]core.Lead),
		history: make(map[string][]auditRow),
	}
}

var _ core.Store = (*Store)(nil)

// ExistingEmails implements core.Store.
func (s *Store) ExistingEmails(_ context.Context, ownerID string, emails []string) (map[string]bool, error) {
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[strings.ToLower(e)] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]bool)
	for _, l := range s.leads {
		key := strings.ToLower(l.Email)
		if l.OwnerID == ownerID && key != "" && want[key] {
			found[key] = true
		}
	}
	return found, nil
}

// EmailTaken implements core.Store.
func (s *Store) EmailTaken(_ context.Context, ownerID, email, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.leads {
		if l.OwnerID == ownerID && l.ID != excludeID && strings.EqualFold(l.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// GetLead implements core.Store.
func (s *Store) GetLead(_ context.Context, ownerID, id string) (core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return core.Lead{}, core.ErrNotFound
	}
	return l.Clone(), nil
}

// ListLeads implements core.Store.
func (s *Store) ListLeads(_ context.Context, ownerID string, f core.LeadFilter) ([]core.Lead, int, error) {
	s.mu.RLock()
	var matched []core.Lead
	for _, l := range s.leads {
		if l.OwnerID == ownerID && matches(l, f) {
			matched = append(matched, l.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b core.Lead) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+core.DefaultPageSize, total)
	return matched[start:end], total, nil
}

func matches(l core.Lead, f core.LeadFilter) bool {
	if f.City != "" && l.City != f.City {
		return false
	}
	if f.PropertyType != "" && l.PropertyType != f.PropertyType {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Timeline != "" && l.Timeline != f.Timeline {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(l.Name), q) ||
			strings.Contains(strings.ToLower(l.Email), q) ||
			strings.Contains(l.Phone, f.Search)
	}
	return true
}

// ListHistory implements core.Store.
func (s *Store) ListHistory(_ context.Context, leadID string) ([]core.AuditEntry, error) {
	s.mu.RLock()
	rows := slices.Clone(s.history[leadID])
	s.mu.RUnlock()

	slices.SortFunc(rows, func(a, b auditRow) int {
		if c := b.entry.ChangedAt.Compare(a.entry.ChangedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]core.AuditEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out, nil
}

// DeleteLead implements core.Store.
func (s *Store) DeleteLead(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.leads, id)
	delete(s.history, id)
	return nil
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, leads: make(map[string]core.Lead)}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transaction panicked: %v", p)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// LeadCount returns the number of stored leads.
func (s *Store) LeadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}

// AuditCount returns the number of audit entries for leadID.
func (s *Store) AuditCount(leadID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history[leadID])
}

var errLeadExists = errors.New("lead already exists")

// memTx stages writes; the store lock is held by WithTx for its lifetime.
type memTx struct {
	store *Store
	leads map[string]core.Lead
	audit []core.AuditEntry
}

func (t *memTx) CreateLead(_ context.Context, lead core.Lead) error {
	if _, ok := t.store.leads[lead.ID]; ok {
		return fmt.Errorf("create %s: %w", lead.ID, errLeadExists)
	}
	if _, ok := t.leads[lead.ID]; ok {
		return fmt.Errorf("create %s: %w", lead.ID, errLeadExists)
	}
	t.leads[lead.ID] = lead.Clone()
	return nil
}

func (t *memTx) UpdateLead(_ context.Context, lead core.Lead) error {
	cur, ok := t.leads[lead.ID]
	if !ok {
		cur, ok = t.store.leads[lead.ID]
	}
	if !ok || cur.OwnerID != lead.OwnerID {
		return core.ErrNotFound
	}
	t.leads[lead.ID] = lead.Clone()
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, entry core.AuditEntry) error {
	_, staged := t.leads[entry.LeadID]
	_, stored := t.store.leads[entry.LeadID]
	if !staged && !stored {
		return fmt.Errorf("audit for unknown lead %s: %w", entry.LeadID, core.ErrNotFound)
	}
	t.audit = append(t.audit, entry)
	return nil
}

func (t *memTx) apply() {
	for id, l := range t.leads {
		t.store.leads[id] = l
	}
	for _, e := range t.audit {
		t.store.seq++
		t.store.history[e.LeadID] = append(t.store.history[e.LeadID], auditRow{seq: t.store.seq, entry: e})
	}
}
