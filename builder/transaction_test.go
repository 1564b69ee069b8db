package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carlosnayan/agentdb/internal/driver"
	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCommits(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)
	ctx := context.Background()

	err := rt.Transaction(ctx, func(tx *Runtime) error {
		assert.True(t, tx.InTransaction())
		_, err := tx.MustTable("rentals").CreateMany(ctx, CreateManyOptions{
			Data: []Record{{"plan": "pro"}},
		})
		return err
	})
	require.NoError(t, err)
	assert.False(t, rt.InTransaction())
	assert.Equal(t, 1, db.begun, "writes inside a transaction reuse it")
	assert.Equal(t, 1, db.committed)
	assert.Zero(t, db.rolledBack)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)
	boom := errors.New("boom")

	err := rt.Transaction(context.Background(), func(*Runtime) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.rolledBack)
	assert.Zero(t, db.committed)
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)

	assert.PanicsWithValue(t, "boom", func() {
		_ = rt.Transaction(context.Background(), func(*Runtime) error { panic("boom") })
	})
	assert.Equal(t, 1, db.rolledBack)
	assert.Zero(t, db.committed)
}

func TestTransactionDoesNotNest(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("sqlite", db)

	err := rt.Transaction(context.Background(), func(tx *Runtime) error {
		return tx.Transaction(context.Background(), func(*Runtime) error { return nil })
	})
	assert.True(t, isValidation(err))
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.rolledBack)
}

func TestTransactionTimeout(t *testing.T) {
	db := newFake()
	rt := newTestRuntime("postgresql", db)

	err := rt.Transaction(context.Background(), func(*Runtime) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}, TxOptions{Timeout: 10 * time.Millisecond})
	assert.True(t, errs.IsTimeout(err), "got %v", err)
	assert.Zero(t, db.committed)
	assert.Equal(t, 1, db.rolledBack)
}

// slowBegin delays Begin to simulate an exhausted pool
type slowBegin struct {
	*fakeDB
	delay time.Duration
}

func (s slowBegin) Begin(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	time.Sleep(s.delay)
	return s.fakeDB.Begin(ctx, opts)
}

func TestTransactionMaxWait(t *testing.T) {
	db := newFake()
	rt := NewRuntime(slowBegin{fakeDB: db, delay: 100 * time.Millisecond}, newTestRuntime("postgresql", db).Dialect(), nil)

	err := rt.Transaction(context.Background(), func(*Runtime) error {
		t.Fatal("fn must not run")
		return nil
	}, TxOptions{MaxWait: 10 * time.Millisecond})
	assert.True(t, errs.IsTimeout(err), "got %v", err)

	// the transaction that arrives late is released
	assert.Eventually(t, func() bool {
		db.mu.Lock()
		defer db.mu.Unlock()
		return db.rolledBack == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTransactionDefaults(t *testing.T) {
	got := TxOptions{ReadOnly: true}.merge(TxOptions{
		IsolationLevel: driver.IsolationSerializable,
		Timeout:        time.Second,
		MaxWait:        time.Millisecond,
	})
	assert.Equal(t, TxOptions{
		IsolationLevel: driver.IsolationSerializable,
		ReadOnly:       true,
		Timeout:        time.Second,
		MaxWait:        time.Millisecond,
	}, got)
}
