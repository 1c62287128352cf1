package kcv_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobboyms/graphstore/pkg/config"
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/kcv"
	"github.com/bobboyms/graphstore/pkg/types"
)

func TestManager_OpenStoreIsIdempotent(t *testing.T) {
	m := newManager(t, "2pl", "composite")

	s1, err := m.OpenStore("edges")
	require.NoError(t, err)
	s2, err := m.OpenStore("edges")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, "edges", s1.Name())
}

func TestManager_BeginTransactionHandles(t *testing.T) {
	m := newManager(t, "2pl", "composite")

	tx1, err := m.BeginTransaction(kcv.TxConfig{})
	require.NoError(t, err)
	tx2, err := m.BeginTransaction(kcv.TxConfig{})
	require.NoError(t, err)

	assert.NotEqual(t, tx1.ID, tx2.ID)
	assert.NotEmpty(t, tx1.Handle)
	assert.NotEqual(t, tx1.Handle, tx2.Handle)

	require.NoError(t, tx1.Rollback())
	require.NoError(t, tx2.Rollback())

	// Handle morto
	assert.Equal(t, errors.KindTxNotFound, errors.KindOf(tx1.Commit()))
}

func TestManager_TxConfigIsAcceptedAndIgnored(t *testing.T) {
	m := newManager(t, "2pl", "composite")

	tx, err := m.BeginTransaction(kcv.TxConfig{
		TimestampProvider: func() int64 { return 42 },
		Isolation:         "serializable",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}

func TestManager_CloseShutsEngineDown(t *testing.T) {
	cfg := config.Default()
	m, err := kcv.NewStoreManager(cfg)
	require.NoError(t, err)

	store, err := m.OpenStore("s")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = store.GetSlice([]byte("r"), nil, nil, 0, nil)
	assert.Equal(t, errors.KindNotInitialized, errors.KindOf(err))

	_, err = m.OpenStore("other")
	assert.Equal(t, errors.KindNotInitialized, errors.KindOf(err))
}

func TestManager_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy = "pessimistic-hope"
	_, err := kcv.NewStoreManager(cfg)
	assert.Equal(t, errors.KindInvalidArgument, errors.KindOf(err))
}

// Dois workers disputando a mesma célula sob 2PL: ExecuteWithRetry
// absorve os KeyLocked e os dois acabam commitando.
func TestManager_ExecuteWithRetryUnderContention(t *testing.T) {
	m := newManager(t, "2pl", "composite")
	store, err := m.OpenStore("s")
	require.NoError(t, err)

	require.NoError(t, m.ExecuteWithRetry(func(tx *kcv.StoreTx) error {
		return store.Mutate([]byte("r"), []types.ColumnValue{
			{Column: []byte("n"), Value: []byte{0}},
		}, nil, tx)
	}))

	const workers = 4
	const perWorker = 10
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := m.ExecuteWithRetry(func(tx *kcv.StoreTx) error {
					v, err := store.GetColumn([]byte("r"), []byte("n"), tx)
					if err != nil {
						return err
					}
					return store.Mutate([]byte("r"), []types.ColumnValue{
						{Column: []byte("n"), Value: []byte{v[0] + 1}},
					}, nil, tx)
				})
				if err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Worker failed: %v", err)
	}

	v, err := store.GetColumn([]byte("r"), []byte("n"), nil)
	require.NoError(t, err)
	assert.Equal(t, byte(workers*perWorker), v[0])
}

func TestManager_ExecuteWithRetryPropagatesFatalErrors(t *testing.T) {
	m := newManager(t, "2pl", "composite")
	store, err := m.OpenStore("s")
	require.NoError(t, err)

	calls := 0
	err = m.ExecuteWithRetry(func(tx *kcv.StoreTx) error {
		calls++
		// InvalidArgument não é conflito: nada de retry
		return store.Mutate([]byte("r\x00"), []types.ColumnValue{
			{Column: []byte("c"), Value: []byte("v")},
		}, nil, tx)
	})
	assert.Equal(t, errors.KindInvalidArgument, errors.KindOf(err))
	assert.Equal(t, 1, calls)
}
