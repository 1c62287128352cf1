package kcv

import (
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bobboyms/graphstore/pkg/config"
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/log"
	"github.com/bobboyms/graphstore/pkg/storage"
)

// TxConfig é o que o host de grafo passa em beginTransaction.
// Provedor de timestamp e isolamento são aceitos e ignorados por
// enquanto — o engine decide ambos.
type TxConfig struct {
	TimestampProvider func() int64
	Isolation         string
}

// StoreTx é o handle opaco de transação entregue ao host. ID é o id do
// engine; Handle é um uuid só para correlação em logs.
type StoreTx struct {
	ID     int64
	Handle string

	manager *StoreManager
	cfg     TxConfig
}

func (tx *StoreTx) Commit() error {
	return tx.manager.engine.Commit(tx.ID)
}

func (tx *StoreTx) Rollback() error {
	return tx.manager.engine.Rollback(tx.ID)
}

// StoreManager é dono do ciclo de vida do engine, mantém as stores
// abertas por nome e emite transações.
type StoreManager struct {
	engine  *storage.Engine
	adapter Adapter
	scheme  Scheme

	mu     sync.Mutex
	stores map[string]*Store

	logger zerolog.Logger
}

// NewStoreManager constrói engine + adapter a partir da configuração.
func NewStoreManager(cfg *config.Config) (*StoreManager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strat, _ := storage.ParseStrategy(cfg.Strategy)
	engine, err := storage.New(storage.Options{Strategy: strat})
	if err != nil {
		return nil, err
	}

	scheme, _ := ParseScheme(cfg.Scheme)
	m := &StoreManager{
		engine:  engine,
		adapter: NewAdapter(engine, scheme),
		scheme:  scheme,
		stores:  make(map[string]*Store),
		logger:  log.WithComponent("kcv"),
	}
	m.logger.Info().Str("scheme", scheme.String()).
		Str("strategy", cfg.Strategy).Msg("store manager ready")
	return m, nil
}

// Engine expõe o engine subjacente (testes e ferramentas).
func (m *StoreManager) Engine() *storage.Engine {
	return m.engine
}

func (m *StoreManager) Scheme() Scheme {
	return m.scheme
}

// OpenStore abre (criando se preciso) a store com esse nome.
// Idempotente: reabrir devolve a mesma instância.
func (m *StoreManager) OpenStore(name string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[name]; ok {
		return s, nil
	}

	_, err := m.engine.CreateTable(name, m.adapter.TableMethod())
	if err != nil && errors.KindOf(err) != errors.KindTableExists {
		return nil, err
	}

	s := &Store{name: name, manager: m}
	m.stores[name] = s
	return s, nil
}

// BeginTransaction abre uma transação do engine embrulhada no handle
// opaco do host.
func (m *StoreManager) BeginTransaction(cfg TxConfig) (*StoreTx, error) {
	id, err := m.engine.Begin()
	if err != nil {
		return nil, err
	}
	return &StoreTx{
		ID:      id,
		Handle:  uuid.NewString(),
		manager: m,
		cfg:     cfg,
	}, nil
}

// Close derruba o engine. Stores abertas ficam inutilizáveis
// (NotInitialized).
func (m *StoreManager) Close() error {
	return m.engine.Close()
}

const defaultMaxRetries = 10

// ExecuteWithRetry roda fn numa transação nova e commita. Conflitos
// (KeyLocked/StaleData) fazem rollback e tentam de novo com backoff
// exponencial — é o retry de camada de aplicação que a política
// no-wait do engine assume. Qualquer outro erro aborta na hora.
func (m *StoreManager) ExecuteWithRetry(fn func(tx *StoreTx) error) error {
	op := func() error {
		tx, err := m.BeginTransaction(TxConfig{})
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if errors.IsConflict(err) {
				m.logger.Debug().Str("handle", tx.Handle).Err(err).
					Msg("transaction conflict, retrying")
				return err
			}
			return backoff.Permanent(err)
		}

		if err := tx.Commit(); err != nil {
			// Commit que falha já destruiu a transação no engine
			if errors.IsConflict(err) {
				m.logger.Debug().Str("handle", tx.Handle).Err(err).
					Msg("commit conflict, retrying")
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries)
	return backoff.Retry(op, bo)
}
