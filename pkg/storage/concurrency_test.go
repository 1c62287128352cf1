package storage_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/storage"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Vários workers incrementando o mesmo contador sob 2PL: conflitos
// viram KeyLocked e o worker tenta de novo, como a política no-wait
// manda. No final o contador tem que bater com o total de incrementos.
func TestConcurrency_TwoPLCounter(t *testing.T) {
	e := newEngine(t, storage.StrategyTwoPL)
	if _, err := e.CreateTable("t", types.Range); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	seed := mustBegin(t, e)
	e.Set(seed, "t", []byte("counter"), []byte{0})
	if err := e.Commit(seed); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				for {
					tx, err := e.Begin()
					if err != nil {
						errCh <- err
						return
					}
					v, err := e.Get(tx, "t", []byte("counter"))
					if err != nil {
						e.Rollback(tx)
						if errors.IsKeyLocked(err) {
							continue
						}
						errCh <- err
						return
					}
					if err := e.Set(tx, "t", []byte("counter"), []byte{v[0] + 1}); err != nil {
						e.Rollback(tx)
						if errors.IsKeyLocked(err) {
							continue
						}
						errCh <- err
						return
					}
					if err := e.Commit(tx); err != nil {
						errCh <- err
						return
					}
					break
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Worker failed: %v", err)
	}

	v, err := e.Get(0, "t", []byte("counter"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if int(v[0]) != workers*perWorker {
		t.Errorf("Expected counter %d, got %d", workers*perWorker, v[0])
	}
}

// Mesmo teste sob OCC: conflitos aparecem como StaleData no commit.
func TestConcurrency_OCCCounter(t *testing.T) {
	e := newEngine(t, storage.StrategyOCC)
	if _, err := e.CreateTable("t", types.Range); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	seed := mustBegin(t, e)
	e.Set(seed, "t", []byte("counter"), []byte{0})
	if err := e.Commit(seed); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				for {
					tx, err := e.Begin()
					if err != nil {
						errCh <- err
						return
					}
					v, err := e.Get(tx, "t", []byte("counter"))
					if err != nil {
						e.Rollback(tx)
						errCh <- err
						return
					}
					if err := e.Set(tx, "t", []byte("counter"), []byte{v[0] + 1}); err != nil {
						e.Rollback(tx)
						errCh <- err
						return
					}
					err = e.Commit(tx)
					if err == nil {
						break
					}
					if !errors.IsStaleData(err) {
						errCh <- err
						return
					}
					// Commit falho já destruiu a transação; só recomeçar
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Worker failed: %v", err)
	}

	v, err := e.Get(0, "t", []byte("counter"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if int(v[0]) != workers*perWorker {
		t.Errorf("Expected counter %d, got %d", workers*perWorker, v[0])
	}
}

// Transações disjuntas não conflitam: cada worker escreve nas próprias
// chaves e tudo commita de primeira.
func TestConcurrency_DisjointKeys(t *testing.T) {
	for _, strat := range []storage.Strategy{storage.StrategyTwoPL, storage.StrategyOCC} {
		t.Run(strat.String(), func(t *testing.T) {
			e := newEngine(t, strat)
			if _, err := e.CreateTable("t", types.Range); err != nil {
				t.Fatalf("CreateTable failed: %v", err)
			}

			const workers = 8
			var wg sync.WaitGroup
			errCh := make(chan error, workers)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					tx, err := e.Begin()
					if err != nil {
						errCh <- err
						return
					}
					for i := 0; i < 10; i++ {
						key := fmt.Sprintf("w%02d:k%02d", id, i)
						if err := e.Set(tx, "t", []byte(key), []byte("v")); err != nil {
							errCh <- fmt.Errorf("set %s: %w", key, err)
							return
						}
					}
					if err := e.Commit(tx); err != nil {
						errCh <- err
					}
				}(w)
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				t.Fatalf("Worker failed: %v", err)
			}

			kvs, err := e.Scan(0, "t", nil, nil, 0)
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if len(kvs) != workers*10 {
				t.Errorf("Expected %d keys, got %d", workers*10, len(kvs))
			}
		})
	}
}
