// Package sqlite implements core.Store on an embedded SQLite database. It is
// meant for single-process deployments and the leadctl tool.
//
// Tags and audit payloads are stored as JSON text. Timestamps are stored as
// fixed-width UTC text so that string order is time order.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/leadbook/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store is a core.Store over one SQLite database.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One connection: writers never contend and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const leadColumns = `id, owner_id, name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, created_at, updated_at`

// ExistingEmails implements core.Store.
func (s *Store) ExistingEmails(ctx context.Context, ownerID string, emails []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(emails) == 0 {
		return found, nil
	}

	args := make([]any, 0, len(emails)+1)
	args = append(args, ownerID)
	for _, e := range emails {
		args = append(args, strings.ToLower(e))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(emails)), ", ")

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT lower(email) FROM leads
		 WHERE owner_id = ? AND email IS NOT NULL AND lower(email) IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		found[email] = true
	}
	return found, rows.Err()
}

// EmailTaken implements core.Store.
func (s *Store) EmailTaken(ctx context.Context, ownerID, email, excludeID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM leads WHERE owner_id = ? AND lower(email) = lower(?) AND id <> ?
		)`, ownerID, email, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// GetLead implements core.Store.
func (s *Store) GetLead(ctx context.Context, ownerID, id string) (core.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Lead{}, core.ErrNotFound
	}
	if err != nil {
		return core.Lead{}, fmt.Errorf("get lead %s: %w", id, err)
	}
	return lead, nil
}

// ListLeads implements core.Store.
func (s *Store) ListLeads(ctx context.Context, ownerID string, f core.LeadFilter) ([]core.Lead, int, error) {
	where, args := filterClause(ownerID, f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	if total == 0 {
		return []core.Lead{}, 0, nil
	}

	args = append(args, core.DefaultPageSize, f.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE `+where+` ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]core.Lead, 0, core.DefaultPageSize)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

func filterClause(ownerID string, f core.LeadFilter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{ownerID}

	for _, c := range []struct {
		column string
		value  string
	}{
		{"city", string(f.City)},
		{"property_type", string(f.PropertyType)},
		{"status", string(f.Status)},
		{"timeline", string(f.Timeline)},
	} {
		if c.value != "" {
			conds = append(conds, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	if f.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		pattern := "%" + escapeLike(f.Search) + "%"
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListHistory implements core.Store.
func (s *Store) ListHistory(ctx context.Context, leadID string) ([]core.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, changed_by, changed_at, diff FROM lead_history
		 WHERE lead_id = ? ORDER BY changed_at DESC, seq DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var (
			e         core.AuditEntry
			changedAt string
			diff      string
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ActorUserID, &changedAt, &diff); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		if e.Payload, err = core.UnmarshalPayload([]byte(diff)); err != nil {
			return nil, fmt.Errorf("history %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteLead implements core.Store.
func (s *Store) DeleteLead(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete lead %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("transaction panicked: %v", p)
		}
	}()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateLead(ctx context.Context, l core.Lead) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, nullString(l.Email), l.Phone, string(l.City), string(l.PropertyType),
		nullString(string(l.BHK)), string(l.Purpose), nullInt(l.BudgetMin), nullInt(l.BudgetMax),
		string(l.Timeline), string(l.Source), string(l.Status), nullString(l.Notes), tags,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateLead(ctx context.Context, l core.Lead) error {
	tags, err := encodeTags(l.Tags)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE leads SET name = ?, email = ?, phone = ?, city = ?, property_type = ?, bhk = ?,
			purpose = ?, budget_min = ?, budget_max = ?, timeline = ?, source = ?, status = ?,
			notes = ?, tags = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		l.Name, nullString(l.Email), l.Phone, string(l.City), string(l.PropertyType),
		nullString(string(l.BHK)), string(l.Purpose), nullInt(l.BudgetMin), nullInt(l.BudgetMax),
		string(l.Timeline), string(l.Source), string(l.Status), nullString(l.Notes), tags,
		formatTime(l.UpdatedAt), l.ID, l.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *sqliteTx) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	diff, err := core.MarshalPayload(e.Payload)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO lead_history (id, lead_id, changed_by, changed_at, diff) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.LeadID, e.ActorUserID, formatTime(e.ChangedAt), string(diff))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (core.Lead, error) {
	var (
		l                              core.Lead
		email, bhk, notes              sql.NullString
		budgetMin, budgetMax           sql.NullInt64
		city, propertyType, purpose    string
		timeline, source, status, tags string
		createdAt, updatedAt           string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &email, &l.Phone, &city, &propertyType, &bhk, &purpose,
		&budgetMin, &budgetMax, &timeline, &source, &status, &notes, &tags, &createdAt, &updatedAt)
	if err != nil {
		return core.Lead{}, err
	}

	l.Email = email.String
	l.City = core.City(city)
	l.PropertyType = core.PropertyType(propertyType)
	l.BHK = core.BHK(bhk.String)
	l.Purpose = core.Purpose(purpose)
	l.BudgetMin = intFromNull(budgetMin)
	l.BudgetMax = intFromNull(budgetMax)
	l.Timeline = core.Timeline(timeline)
	l.Source = core.Source(source)
	l.Status = core.Status(status)
	l.Notes = notes.String

	if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
		return core.Lead{}, fmt.Errorf("decode tags: %w", err)
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Lead{}, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Lead{}, err
	}
	return l, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
