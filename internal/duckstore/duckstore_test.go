package duckstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/civicstack/uidai-lake/internal/master"
	"github.com/stretchr/testify/require"
)

func TestLake_DuckStore_LoadMasterReplaces(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "lake.duckdb"), nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	table := &master.Table{Rows: []master.Row{
		{
			Date: "2011-04-03", State: "Bihar", District: "Patna",
			Age0to5: 10, Age5to17: 20, Age18Plus: 70, TotalEnrolments: 100,
			Demo5to17: 10, Demo18Plus: 10, Bio5to17: 5, Bio18Plus: 5,
			UpdateBurden: 30, ChildRatio: 0.1,
		},
		{
			Date: "2011-04-04", State: "Goa", District: "Panaji",
			Age0to5: 0, Age5to17: 0, Age18Plus: 0, TotalEnrolments: 1,
			UpdateBurden: 2, PolicyAlert: true,
		},
	}}
	require.NoError(t, store.LoadMaster(ctx, table))

	n, err := store.CountRows(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// A reload fully replaces, never appends.
	require.NoError(t, store.LoadMaster(ctx, &master.Table{Rows: table.Rows[:1]}))
	n, err = store.CountRows(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
