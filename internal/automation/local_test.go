package automation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
)

func newLocal(t *testing.T) (*Local, *record.MemoryStore) {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	store := record.NewMemoryStore()
	store.Seed(VolunteersCollection,
		record.Values{"V-001", "Ana", "Ruiz", "Ana Ruiz", "", "", "", "", "", "Active", "", "", ""},
		record.Values{"V-002", "Luis", "Ortega", "Luis Ortega", "", "", "", "", "", "Active", "", "", ""},
	)
	store.Seed(TimeoffsCollection,
		record.Values{"Ana Ruiz", "Not Available", "2025-03-01", "2025-03-08", "", "Pending", "2025-02-20", ""},
		record.Values{"Luis Ortega", "Only Available", "2025-03-15", "2025-03-10", "typo?", "Pending", "", ""},
		record.Values{"Unknown Person", "Not Available", "2025-03-02", "2025-03-02", "", "Pending", "", ""},
		record.Values{"Ana Ruiz", "Not Available", "2025-04-01", "2025-04-03", "", "Pending", "", ""},
		record.Values{"Luis Ortega", "Not Available", "2025-03-20", "2025-03-21", "", "Approved", "", ""},
	)
	return NewLocal(store, reg, zerolog.Nop()), store
}

func TestLocal_ListPendingForPeriod(t *testing.T) {
	l, _ := newLocal(t)
	items, err := l.ListPending(context.Background(), "2025-03")
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, 0, items[0].DataIndex)
	assert.Equal(t, approval.KindNotAvailable, items[0].Kind)
	assert.Equal(t, 1, items[1].DataIndex, "reversed range is still listed")
	assert.Equal(t, approval.KindOnlyAvailable, items[1].Kind)
	assert.Equal(t, "typo?", items[1].Notes)
	assert.Equal(t, 2, items[2].DataIndex)
}

func TestLocal_RejectWritesStatusAndNote(t *testing.T) {
	ctx := context.Background()
	l, store := newLocal(t)

	require.NoError(t, l.Reject(ctx, 2, "missing coverage"))
	rows, err := store.Read(ctx, TimeoffsCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rows[2][5])
	assert.Equal(t, "missing coverage", rows[2][7])

	err = l.Approve(ctx, 2, "")
	require.Error(t, err)
	assert.Equal(t, "Timeoff row 2 is already Rejected", remote.Message(err))

	err = l.Approve(ctx, 40, "")
	assert.True(t, remote.IsFailure(err))
}

func TestLocal_BulkApproveClean(t *testing.T) {
	ctx := context.Background()
	l, store := newLocal(t)

	n, err := l.BulkApproveClean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "rows 0 and 3; row 1 is reversed and row 2 is unknown")

	rows, err := store.Read(ctx, TimeoffsCollection)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, rows[0][5])
	assert.Equal(t, StatusPending, rows[1][5])
	assert.Equal(t, StatusPending, rows[2][5])
	assert.Equal(t, StatusApproved, rows[3][5])

	items, err := l.ListPending(ctx, "2025-03")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestLocal_ValidateData(t *testing.T) {
	ctx := context.Background()
	l, store := newLocal(t)
	store.Seed("Ministries", record.Values{"Lector", "1st Reading", "", true})
	store.Seed("Config", record.Values{"parishName"}, record.Values{"", "x"})
	store.Seed("MassTemplates", record.Values{"Sunday", "Lector", "Cantor", ""})

	report, err := l.ValidateData(ctx)
	require.NoError(t, err)

	assert.Contains(t, report.Errors, "Settings row 1: has 1 values, expected 2")
	assert.Contains(t, report.Errors, "Settings row 2: Setting is required")
	assert.Contains(t, report.Warnings, `Mass Templates row 1: Role "Cantor" is not a known option`)
	assert.Contains(t, report.Warnings, `Timeoff Requests row 3: Volunteer "Unknown Person" is not a known option`)
	assert.NotContains(t, report.Warnings, `Mass Templates row 1: Ministry "Lector" is not a known option`)
}

func TestLocal_GenerationNotConfigured(t *testing.T) {
	l, _ := newLocal(t)
	err := l.GenerateCalendar(context.Background())
	require.Error(t, err)
	assert.Contains(t, remote.Message(err), "generateCalendar is not available")
}
