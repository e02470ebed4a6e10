package record

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(db)
	require.NoError(t, s.CreateTable(context.Background()))
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLStore(t),
	}
}

func TestStore_CreateReadInOrder(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, "Ministries", Values{"Lector", "1st Reading", "", true}))
			require.NoError(t, s.Create(ctx, "Ministries", Values{"Lector", "2nd Reading", "", true}))
			require.NoError(t, s.Create(ctx, "Config", Values{"parishName", "St. Ann"}))

			rows, err := s.Read(ctx, "Ministries")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, Values{"Lector", "1st Reading", "", true}, rows[0])
			assert.Equal(t, "2nd Reading", rows[1][1])

			rows, err = s.Read(ctx, "Timeoffs")
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestStore_UpdateAndDeleteShiftRows(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, v := range []string{"a", "b", "c"} {
				require.NoError(t, s.Create(ctx, "Config", Values{v, ""}))
			}

			require.NoError(t, s.Update(ctx, "Config", 1, Values{"b", "changed"}))
			require.NoError(t, s.Delete(ctx, "Config", 0))

			rows, err := s.Read(ctx, "Config")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, Values{"b", "changed"}, rows[0])
			assert.Equal(t, Values{"c", ""}, rows[1])

			require.NoError(t, s.Create(ctx, "Config", Values{"d", ""}))
			rows, err = s.Read(ctx, "Config")
			require.NoError(t, err)
			assert.Equal(t, "d", rows[2][0])
		})
	}
}

func TestStore_StaleIndex(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, "Config", Values{"a", ""}))

			err := s.Update(ctx, "Config", 3, Values{"x", ""})
			assert.ErrorIs(t, err, ErrRowNotFound)
			err = s.Delete(ctx, "Config", -1)
			assert.ErrorIs(t, err, ErrRowNotFound)
		})
	}
}

func TestMemoryStore_ReadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Seed("Config", Values{"a", "1"})

	rows, err := s.Read(ctx, "Config")
	require.NoError(t, err)
	rows[0][1] = "mutated"

	rows, err = s.Read(ctx, "Config")
	require.NoError(t, err)
	assert.Equal(t, "1", rows[0][1])
}

func TestSQLStore_NumbersDecodeAsFloat(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	require.NoError(t, s.Create(ctx, "LiturgicalReadings", Values{"Easter Sunday", "ABC", 42, nil}))

	rows, err := s.Read(ctx, "LiturgicalReadings")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(42), rows[0][2])
	assert.Nil(t, rows[0][3])
}
