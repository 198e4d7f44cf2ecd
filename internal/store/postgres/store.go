// Package postgres implements core.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a core.Store backed by a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an open pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ core.Store = (*Store)(nil)

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const leadColumns = `id, owner_id, name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, created_at, updated_at`

// ExistingEmails implements core.Store.
func (s *Store) ExistingEmails(ctx context.Context, ownerID string, emails []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(emails) == 0 {
		return found, nil
	}

	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT lower(email) FROM leads
		 WHERE owner_id = $1 AND email IS NOT NULL AND lower(email) = ANY($2)`,
		ownerID, lowered)
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
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM leads
			WHERE owner_id = $1 AND lower(email) = lower($2) AND id <> $3
		)`,
		ownerID, email, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// GetLead implements core.Store.
func (s *Store) GetLead(ctx context.Context, ownerID, id string) (core.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	if total == 0 {
		return []core.Lead{}, 0, nil
	}

	args = append(args, core.DefaultPageSize, f.Offset())
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY updated_at DESC, id LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
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

// filterClause builds the WHERE body and its positional arguments.
func filterClause(ownerID string, f core.LeadFilter) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{ownerID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.City != "" {
		add("city = $%d", string(f.City))
	}
	if f.PropertyType != "" {
		add("property_type = $%d", string(f.PropertyType))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Timeline != "" {
		add("timeline = $%d", string(f.Timeline))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone LIKE $%d)", n, n, n))
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListHistory implements core.Store.
func (s *Store) ListHistory(ctx context.Context, leadID string) ([]core.AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, changed_by, changed_at, diff FROM lead_history
		 WHERE lead_id = $1 ORDER BY changed_at DESC, seq DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var (
			e    core.AuditEntry
			diff []byte
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ActorUserID, &e.ChangedAt, &diff); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.Payload, err = core.UnmarshalPayload(diff); err != nil {
			return nil, fmt.Errorf("history %s: %w", e.ID, err)
		}
		e.ChangedAt = e.ChangedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteLead implements core.Store. History rows go with the lead through
// ON DELETE CASCADE.
func (s *Store) DeleteLead(ctx context.Context, ownerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete lead %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// WithTx implements core.Store. A panic inside fn rolls back and is returned
// as an error.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transaction panicked: %v", p)
		}
	}()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{db: tx})
	})
}

type pgTx struct {
	db DBTX
}

func (t *pgTx) CreateLead(ctx context.Context, l core.Lead) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		l.ID, l.OwnerID, l.Name, nullable(l.Email), l.Phone, string(l.City), string(l.PropertyType),
		nullable(string(l.BHK)), string(l.Purpose), l.BudgetMin, l.BudgetMax, string(l.Timeline),
		string(l.Source), string(l.Status), nullable(l.Notes), tagsOrEmpty(l.Tags), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateLead(ctx context.Context, l core.Lead) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE leads SET name = $3, email = $4, phone = $5, city = $6, property_type = $7, bhk = $8,
			purpose = $9, budget_min = $10, budget_max = $11, timeline = $12, source = $13,
			status = $14, notes = $15, tags = $16, updated_at = $17
		 WHERE id = $1 AND owner_id = $2`,
		l.ID, l.OwnerID, l.Name, nullable(l.Email), l.Phone, string(l.City), string(l.PropertyType),
		nullable(string(l.BHK)), string(l.Purpose), l.BudgetMin, l.BudgetMax, string(l.Timeline),
		string(l.Source), string(l.Status), nullable(l.Notes), tagsOrEmpty(l.Tags), l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	diff, err := core.MarshalPayload(e.Payload)
	if err != nil {
		return err
	}
	_, err = t.db.Exec(ctx,
		`INSERT INTO lead_history (id, lead_id, changed_by, changed_at, diff) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.LeadID, e.ActorUserID, e.ChangedAt, diff)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func scanLead(row pgx.Row) (core.Lead, error) {
	var (
		l                    core.Lead
		email, bhk, notes    *string
		city, propertyType   string
		purpose, timeline    string
		source, status       string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &email, &l.Phone, &city, &propertyType, &bhk, &purpose,
		&l.BudgetMin, &l.BudgetMax, &timeline, &source, &status, &notes, &l.Tags, &createdAt, &updatedAt)
	if err != nil {
		return core.Lead{}, err
	}

	l.Email = deref(email)
	l.City = core.City(city)
	l.PropertyType = core.PropertyType(propertyType)
	l.BHK = core.BHK(deref(bhk))
	l.Purpose = core.Purpose(purpose)
	l.Timeline = core.Timeline(timeline)
	l.Source = core.Source(source)
	l.Status = core.Status(status)
	l.Notes = deref(notes)
	l.Tags = tagsOrEmpty(l.Tags)
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return l, nil
}

// nullable stores absent strings as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
