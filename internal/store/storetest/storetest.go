// Package storetest holds the behavior every core.Store implementation must
// share. Each store package runs the suite against its own backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) core.Store

var base = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s core.Store)
	}{
		{"RoundTrip", testRoundTrip},
		{"ExistingEmails", testExistingEmails},
		{"EmailTaken", testEmailTaken},
		{"RollbackOnError", testRollbackOnError},
		{"UpdateScopedByOwner", testUpdateScopedByOwner},
		{"ListLeads", testListLeads},
		{"History", testHistory},
		{"DeleteCascades", testDeleteCascades},
		{"ImportPipeline", testImportPipeline},
		{"BudgetBounds", testBudgetBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// Lead builds a valid lead for owner at base+offset.
func Lead(id, owner, email string, offset time.Duration) core.Lead {
	at := base.Add(offset)
	return core.Lead{
		ID:      id,
		OwnerID: owner,
		Record: core.Record{
			Name:         "Lead " + id,
			Email:        email,
			Phone:        "9876543210",
			City:         core.CityMohali,
			PropertyType: core.PropertyPlot,
			Purpose:      core.PurposeBuy,
			Timeline:     core.TimelineExploring,
			Source:       core.SourceWebsite,
			Status:       core.StatusNew,
			Tags:         []string{},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func create(t *testing.T, s core.Store, leads ...core.Lead) {
	t.Helper()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx core.Tx) error {
		for _, l := range leads {
			if err := tx.CreateLead(ctx, l); err != nil {
				return err
			}
			entry := core.NewAuditEntry(l.ID, l.OwnerID, l.CreatedAt, core.CreatedPayload{Snapshot: l.Record})
			if err := tx.AppendAudit(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func testRoundTrip(t *testing.T, s core.Store) {
	ctx := context.Background()
	lo, hi := 2500000, 4000000

	full := Lead("full", "owner", "Asha@Example.com", 0)
	full.PropertyType = core.PropertyApartment
	full.BHK = core.BHKThree
	full.BudgetMin = &lo
	full.BudgetMax = &hi
	full.Notes = "prefers east facing"
	full.Tags = []string{"vip", "nri"}

	sparse := Lead("sparse", "owner", "", time.Minute)

	create(t, s, full, sparse)

	for _, want := range []core.Lead{full, sparse} {
		got, err := s.GetLead(ctx, "owner", want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Record, got.Record)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v, want %v", got.CreatedAt, want.CreatedAt)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}

	_, err := s.GetLead(ctx, "someone-else", full.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetLead(ctx, "owner", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testExistingEmails(t *testing.T, s core.Store) {
	ctx := context.Background()
	create(t, s,
		Lead("1", "owner", "Asha@Example.com", 0),
		Lead("2", "owner", "", time.Second),
		Lead("3", "other", "ravi@example.com", 2*time.Second),
	)

	got, err := s.ExistingEmails(ctx, "owner", []string{"asha@example.com", "ravi@example.com", "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"asha@example.com": true}, got)

	none, err := s.ExistingEmails(ctx, "owner", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testEmailTaken(t *testing.T, s core.Store) {
	ctx := context.Background()
	create(t, s, Lead("1", "owner", "asha@example.com", 0))

	taken, err := s.EmailTaken(ctx, "owner", "ASHA@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.EmailTaken(ctx, "owner", "asha@example.com", "1")
	require.NoError(t, err)
	assert.False(t, taken, "own lead is excluded")

	taken, err = s.EmailTaken(ctx, "other", "asha@example.com", "")
	require.NoError(t, err)
	assert.False(t, taken, "other owner")
}

func testRollbackOnError(t *testing.T, s core.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx core.Tx) error {
		l := Lead("1", "owner", "asha@example.com", 0)
		if err := tx.CreateLead(ctx, l); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, core.NewAuditEntry(l.ID, "owner", l.CreatedAt, core.CreatedPayload{Snapshot: l.Record})); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetLead(ctx, "owner", "1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	history, err := s.ListHistory(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, history)

	found, err := s.ExistingEmails(ctx, "owner", []string{"asha@example.com"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func testUpdateScopedByOwner(t *testing.T, s core.Store) {
	ctx := context.Background()
	l := Lead("1", "owner", "", 0)
	create(t, s, l)

	hijack := l
	hijack.OwnerID = "intruder"
	hijack.Name = "Changed"
	err := s.WithTx(ctx, func(tx core.Tx) error {
		return tx.UpdateLead(ctx, hijack)
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	changed := l.Clone()
	changed.Status = core.StatusVisited
	changed.Tags = []string{"site-visit"}
	changed.UpdatedAt = l.UpdatedAt.Add(time.Hour)
	err = s.WithTx(ctx, func(tx core.Tx) error {
		return tx.UpdateLead(ctx, changed)
	})
	require.NoError(t, err)

	got, err := s.GetLead(ctx, "owner", l.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusVisited, got.Status)
	assert.Equal(t, []string{"site-visit"}, got.Tags)
	assert.True(t, changed.UpdatedAt.Equal(got.UpdatedAt))
	assert.True(t, l.CreatedAt.Equal(got.CreatedAt))
}

func testListLeads(t *testing.T, s core.Store) {
	ctx := context.Background()

	var leads []core.Lead
	for i := 0; i < 13; i++ {
		l := Lead(fmt.Sprintf("lead-%02d", i), "owner", fmt.Sprintf("lead%02d@example.com", i), time.Duration(i)*time.Minute)
		if i%4 == 0 {
			l.City = core.CityPanchkula
			l.Status = core.StatusQualified
		}
		leads = append(leads, l)
	}
	odd := Lead("odd", "owner", "", 20*time.Minute)
	odd.Name = "100%_match"
	leads = append(leads, odd)
	leads = append(leads, Lead("foreign", "other", "", time.Hour))
	create(t, s, leads...)

	page1, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	require.Len(t, page1, core.DefaultPageSize)
	assert.Equal(t, "odd", page1[0].ID)
	assert.Equal(t, "lead-12", page1[1].ID)

	page2, _, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 2})
	require.NoError(t, err)
	require.Len(t, page2, 4)
	assert.Equal(t, "lead-00", page2[3].ID)

	beyond, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond)
	assert.Equal(t, 14, total)

	filtered, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1, City: core.CityPanchkula, Status: core.StatusQualified})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, filtered, 4)

	byEmail, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1, Search: "LEAD07@"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "lead-07", byEmail[0].ID)

	literal, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1, Search: "0%_"})
	require.NoError(t, err)
	require.Equal(t, 1, total, "wildcards in the search are literal")
	assert.Equal(t, "odd", literal[0].ID)

	byPhone, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1, Search: "98765"})
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	assert.Len(t, byPhone, core.DefaultPageSize)
}

func testHistory(t *testing.T, s core.Store) {
	ctx := context.Background()
	l := Lead("1", "owner", "", 0)
	create(t, s, l)

	later := l.UpdatedAt.Add(time.Minute)
	update := core.NewAuditEntry(l.ID, "owner", later, core.UpdatedPayload{
		Changes: map[string]core.FieldChange{core.FieldStatus: {From: "NEW", To: "CONTACTED"}},
	})
	// Same timestamp as update; insertion order breaks the tie.
	noop := core.NewAuditEntry(l.ID, "owner", later, core.UpdatedPayload{})

	err := s.WithTx(ctx, func(tx core.Tx) error {
		if err := tx.AppendAudit(ctx, update); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, noop)
	})
	require.NoError(t, err)

	history, err := s.ListHistory(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, noop.ID, history[0].ID)
	assert.Equal(t, update.ID, history[1].ID)
	assert.Equal(t, core.ActionCreated, history[2].Action())

	changes := history[1].Payload.(core.UpdatedPayload).Changes
	assert.Equal(t, core.FieldChange{From: "NEW", To: "CONTACTED"}, changes[core.FieldStatus])
	assert.Empty(t, history[0].Payload.(core.UpdatedPayload).Changes)

	created := history[2].Payload.(core.CreatedPayload)
	assert.Equal(t, l.Record, created.Snapshot)
	assert.Equal(t, "owner", history[2].ActorUserID)
}

func testDeleteCascades(t *testing.T, s core.Store) {
	ctx := context.Background()
	create(t, s, Lead("1", "owner", "", 0))

	assert.ErrorIs(t, s.DeleteLead(ctx, "intruder", "1"), core.ErrNotFound)
	require.NoError(t, s.DeleteLead(ctx, "owner", "1"))
	assert.ErrorIs(t, s.DeleteLead(ctx, "owner", "1"), core.ErrNotFound)

	history, err := s.ListHistory(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// testImportPipeline runs a real import through core.Service, including a
// commit that fails halfway.
func testImportPipeline(t *testing.T, s core.Store) {
	ctx := context.Background()
	user := core.CurrentUser{ID: "owner"}
	svc := core.NewService(s)

	body := "name,email,phone,city,propertyType,bhk,purpose,timeline,source\n" +
		"Asha Verma,asha@example.com,9876543210,Mohali,Apartment,Two,Buy,Exploring,Website\n" +
		"Ravi Kumar,,9876543211,Chandigarh,Plot,,Rent,0 to 3 months,Walk in\n"

	res, err := svc.ImportLeads(ctx, user, core.ImportRequest{FileName: "a.csv", Body: strings.NewReader(body)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, core.FieldTimeline, res.Errors[0].Field, "digits are not a timeline token")

	again, err := svc.ImportLeads(ctx, user, core.ImportRequest{FileName: "a.csv", Body: strings.NewReader(body)})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)

	failing := core.NewService(&failAfter{Store: s, creates: 1})
	res, err = failing.ImportLeads(ctx, user, core.ImportRequest{
		FileName: "b.csv",
		Body: strings.NewReader("name,phone,city,propertyType,purpose,timeline,source\n" +
			"Meera Shah,9876543212,Mohali,Plot,Buy,Exploring,Website\n" +
			"Karan Mehta,9876543213,Mohali,Plot,Buy,Exploring,Website\n"),
	})
	var commitErr *core.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 0, res.Imported)

	page, total, err := s.ListLeads(ctx, "owner", core.LeadFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "failed commit left no rows")
	assert.Equal(t, "Asha Verma", page[0].Name)

	history, err := s.ListHistory(ctx, page[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.ActionImported, history[0].Action())
}

func testBudgetBounds(t *testing.T, s core.Store) {
	ctx := context.Background()

	maxed := Lead("maxed", "owner", "", 0)
	lo, hi := core.MaxBudget, core.MaxBudget
	maxed.BudgetMin = &lo
	maxed.BudgetMax = &hi
	create(t, s, maxed)

	got, err := s.GetLead(ctx, "owner", maxed.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BudgetMax)
	assert.Equal(t, core.MaxBudget, *got.BudgetMax)

	// An oversized budget is a row error, not a failed commit.
	svc := core.NewService(s)
	body := "name,phone,city,propertyType,purpose,budgetMin,timeline,source\n" +
		"Asha Verma,9876543210,Mohali,Plot,Buy,3000000000,Exploring,Website\n" +
		"Ravi Kumar,9876543211,Mohali,Plot,Buy,2500000,Exploring,Website\n"
	res, err := svc.ImportLeads(ctx, core.CurrentUser{ID: "owner"}, core.ImportRequest{FileName: "b.csv", Body: strings.NewReader(body)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, core.FieldBudgetMin, res.Errors[0].Field)
	assert.Equal(t, "3000000000", res.Errors[0].Value)
}

var errInjected = errors.New("injected create failure")

// failAfter lets the first n CreateLead calls of each transaction through and
// fails the next one.
type failAfter struct {
	core.Store
	creates int
}

func (f *failAfter) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx core.Tx) error {
		return fn(&failingTx{Tx: tx, left: f.creates})
	})
}

type failingTx struct {
	core.Tx
	left int
}

func (t *failingTx) CreateLead(ctx context.Context, l core.Lead) error {
	if t.left == 0 {
		return errInjected
	}
	t.left--
	return t.Tx.CreateLead(ctx, l)
}
