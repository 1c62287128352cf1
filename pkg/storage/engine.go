package storage

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/log"
	"github.com/bobboyms/graphstore/pkg/metrics"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Options configura a construção do engine.
type Options struct {
	Strategy Strategy
}

// Engine é a fachada do storage: catálogo de tabelas, registro de
// transações e a estratégia de CC escolhida, tudo serializado por um
// único mutex de processo. O mutex nunca atravessa I/O (não existe I/O
// aqui) e é solto entre operações; 2PL/OCC não dependem dele para
// isolamento, só para integridade das estruturas.
//
// Ownership explícito: quem chama New é dono do engine e chama Close.
// Nada de singleton escondido em init().
type Engine struct {
	mu sync.Mutex

	catalog  *Catalog
	txs      map[int64]*Tx
	nextTxID int64

	strat     strategy
	stratName string

	closed bool
	logger zerolog.Logger
}

// New constrói um engine pronto para uso com a estratégia pedida.
func New(opts Options) (*Engine, error) {
	var strat strategy
	switch opts.Strategy {
	case StrategySerial:
		strat = newSerialStrategy()
	case StrategyTwoPL:
		strat = newTwoPLStrategy()
	case StrategyOCC:
		strat = newOCCStrategy()
	default:
		return nil, &errors.InvalidArgumentError{Msg: "unknown concurrency strategy"}
	}

	// Registro idempotente: testes criam vários engines no mesmo processo
	_ = metrics.Register(prometheus.DefaultRegisterer)

	e := &Engine{
		catalog:   NewCatalog(),
		txs:       make(map[int64]*Tx),
		nextTxID:  1,
		strat:     strat,
		stratName: opts.Strategy.String(),
		logger:    log.WithComponent("engine"),
	}
	e.logger.Info().Str("strategy", e.stratName).Msg("engine initialized")
	return e, nil
}

// Close derruba todo o estado. Qualquer operação depois disso falha com
// NotInitialized. Transações em andamento morrem junto (sem durabilidade,
// não há o que preservar).
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.catalog = nil
	e.txs = nil
	metrics.ActiveTransactions.Set(0)
	e.logger.Info().Msg("engine shut down")
	return nil
}

// CreateTable registra uma tabela nova e retorna seu id (>= 1).
func (e *Engine) CreateTable(name string, method types.PartitionMethod) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, &errors.NotInitializedError{}
	}

	table, err := e.catalog.CreateTable(name, method)
	if err != nil {
		return 0, err
	}
	metrics.TablesTotal.Inc()
	e.logger.Info().Str("table", name).Str("method", method.String()).
		Int64("id", table.ID).Msg("table created")
	return table.ID, nil
}

// Begin abre uma transação e retorna seu id (>= 1, nunca reutilizado).
func (e *Engine) Begin() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, &errors.NotInitializedError{}
	}

	tx := newTx(e.nextTxID)
	if err := e.strat.begin(tx); err != nil {
		return 0, err
	}
	e.nextTxID++
	e.txs[tx.ID] = tx
	metrics.ActiveTransactions.Inc()
	e.logger.Debug().Int64("tx_id", tx.ID).Msg("transaction started")
	return tx.ID, nil
}

// Commit aplica a transação. A transação é consumida SEMPRE: um commit
// que falha (StaleData no OCC) também a destrói — o caller recomeça
// com Begin, não com retry do mesmo id.
func (e *Engine) Commit(txID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &errors.NotInitializedError{}
	}
	tx, ok := e.txs[txID]
	if !ok {
		return &errors.TxNotFoundError{ID: txID}
	}

	err := e.strat.commit(tx)
	delete(e.txs, txID)
	metrics.ActiveTransactions.Dec()
	if err != nil {
		// Validação falhou: libera o que a estratégia ainda segura
		_ = e.strat.rollback(tx)
		metrics.ConflictsTotal.WithLabelValues(e.stratName).Inc()
		metrics.RollbacksTotal.WithLabelValues(e.stratName).Inc()
		e.logger.Debug().Int64("tx_id", txID).Err(err).Msg("commit failed")
		return err
	}
	metrics.CommitsTotal.WithLabelValues(e.stratName).Inc()
	e.logger.Debug().Int64("tx_id", txID).Msg("transaction committed")
	return nil
}

// Rollback descarta a transação sem tocar o storage commitado.
func (e *Engine) Rollback(txID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &errors.NotInitializedError{}
	}
	tx, ok := e.txs[txID]
	if !ok {
		return &errors.TxNotFoundError{ID: txID}
	}

	err := e.strat.rollback(tx)
	delete(e.txs, txID)
	metrics.ActiveTransactions.Dec()
	metrics.RollbacksTotal.WithLabelValues(e.stratName).Inc()
	e.logger.Debug().Int64("tx_id", txID).Msg("transaction rolled back")
	return err
}

// Get lê uma chave. txID 0 é one-shot: enxerga só estado commitado e
// ignora qualquer transação em andamento (guards de 2PL inclusive).
func (e *Engine) Get(txID int64, tableName string, key []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &errors.NotInitializedError{}
	}
	t, err := e.catalog.GetTableByName(tableName)
	if err != nil {
		return nil, err
	}
	metrics.OperationsTotal.WithLabelValues("get").Inc()

	if txID == OneShotTxID {
		entry := t.get(key)
		if entry == nil || entry.isPhantom() {
			return nil, &errors.KeyNotFoundError{Table: tableName, Key: key}
		}
		return types.CloneBytes(entry.Value), nil
	}

	tx, ok := e.txs[txID]
	if !ok {
		return nil, &errors.TxNotFoundError{ID: txID}
	}
	v, err := e.strat.get(tx, t, key)
	if errors.IsKeyLocked(err) {
		metrics.ConflictsTotal.WithLabelValues(e.stratName).Inc()
	}
	return v, err
}

// Set grava uma chave. One-shot writes só existem no modo serial.
func (e *Engine) Set(txID int64, tableName string, key, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &errors.NotInitializedError{}
	}
	t, err := e.catalog.GetTableByName(tableName)
	if err != nil {
		return err
	}
	metrics.OperationsTotal.WithLabelValues("set").Inc()

	if txID == OneShotTxID {
		if !e.strat.allowsOneShotWrite() {
			return &errors.OneShotWriteNotAllowedError{}
		}
		return e.strat.oneShotSet(t, key, value)
	}

	tx, ok := e.txs[txID]
	if !ok {
		return &errors.TxNotFoundError{ID: txID}
	}
	err = e.strat.set(tx, t, key, value)
	if errors.IsKeyLocked(err) {
		metrics.ConflictsTotal.WithLabelValues(e.stratName).Inc()
	}
	return err
}

// Del remove uma chave. Deletar chave ausente não é erro (política
// fixa, igual nos dois esquemas do adapter).
func (e *Engine) Del(txID int64, tableName string, key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &errors.NotInitializedError{}
	}
	t, err := e.catalog.GetTableByName(tableName)
	if err != nil {
		return err
	}
	metrics.OperationsTotal.WithLabelValues("del").Inc()

	if txID == OneShotTxID {
		if !e.strat.allowsOneShotWrite() {
			return &errors.OneShotWriteNotAllowedError{}
		}
		return e.strat.oneShotDel(t, key)
	}

	tx, ok := e.txs[txID]
	if !ok {
		return &errors.TxNotFoundError{ID: txID}
	}
	err = e.strat.del(tx, t, key)
	if errors.IsKeyLocked(err) {
		metrics.ConflictsTotal.WithLabelValues(e.stratName).Inc()
	}
	return err
}

// Scan percorre [lo, hi] inclusivo nas duas pontas, ordem crescente.
// lo nil = início, hi nil = fim. limit <= 0 = sem limite.
func (e *Engine) Scan(txID int64, tableName string, lo, hi []byte, limit int) ([]types.KeyValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &errors.NotInitializedError{}
	}
	t, err := e.catalog.GetTableByName(tableName)
	if err != nil {
		return nil, err
	}
	if err := checkScanRange(lo, hi); err != nil {
		return nil, err
	}
	metrics.OperationsTotal.WithLabelValues("scan").Inc()

	if txID == OneShotTxID {
		// A política de scan em tabela hash vale para one-shot também:
		// só o oráculo serial aceita
		if t.Method != types.Range && !e.strat.allowsHashScan() {
			return nil, &errors.UnsupportedOperationError{Op: "scan", Table: tableName}
		}
		rows := make(map[string][]byte)
		t.ascendRange(lo, hi, func(key []byte, entry *Entry) bool {
			if !entry.isPhantom() {
				rows[string(key)] = entry.Value
			}
			return true
		})
		return assembleScan(t, nil, lo, hi, rows, limit), nil
	}

	tx, ok := e.txs[txID]
	if !ok {
		return nil, &errors.TxNotFoundError{ID: txID}
	}
	kvs, err := e.strat.scan(tx, t, lo, hi, limit)
	if errors.IsKeyLocked(err) {
		metrics.ConflictsTotal.WithLabelValues(e.stratName).Inc()
	}
	return kvs, err
}

// Strategy devolve o nome da estratégia ativa ("serial"/"2pl"/"occ").
func (e *Engine) Strategy() string {
	return e.stratName
}

// OneShotTxID é o id reservado para operações auto-commit.
const OneShotTxID int64 = 0
