package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store { return openTemp(t) })
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, total, err := s.ListLeads(t.Context(), "owner", core.LeadFilter{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.db")

	s, err := Open(path)
	require.NoError(t, err)
	lead := storetest.Lead("1", "owner", "asha@example.com", 0)
	require.NoError(t, s.WithTx(t.Context(), func(tx core.Tx) error {
		return tx.CreateLead(t.Context(), lead)
	}))
	require.NoError(t, s.Close())

	// Applying the schema again must not disturb existing rows.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetLead(t.Context(), "owner", "1")
	require.NoError(t, err)
	assert.Equal(t, lead.Email, got.Email)
}

func TestTimeFormat(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(1500 * time.Microsecond)

	assert.Less(t, formatTime(early), formatTime(late), "text order is time order")

	parsed, err := parseTime(formatTime(late))
	require.NoError(t, err)
	assert.True(t, late.Equal(parsed))
}
