package raw_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosnayan/agentdb/internal/driver"
	dbtest "github.com/carlosnayan/agentdb/internal/testing"
	"github.com/carlosnayan/agentdb/raw"
)

func TestExecutor_RolledBackTransaction(t *testing.T) {
	db, d := dbtest.SetupTestDB(t, dbtest.GetProviderFromEnv())
	dbtest.CleanTestData(t, db, d)
	id := dbtest.SeedAgent(t, db, d, "Ava", "ava")
	ctx := context.Background()

	dbtest.WithTestTransaction(t, db, func(tx driver.Tx) {
		e := raw.New(tx, d)
		n, err := e.ExecuteRaw(ctx, "UPDATE agents SET category = ? WHERE id = ?", "sales", id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rows, err := e.QueryRaw(ctx, "SELECT category FROM agents WHERE id = ?", id)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "sales", rows[0]["category"])
	})

	rows, err := raw.New(db, d).QueryRaw(ctx, "SELECT category, 'it''s ?' AS note FROM agents WHERE slug = ?", "ava")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0]["category"])
	assert.Equal(t, "it's ?", rows[0]["note"])
}
