package storage

import (
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// serialStrategy é o modo de referência: no máximo uma transação viva.
// Sem locks por linha e sem versões — o buffer write/delete set da
// transação é a única fonte de isolamento.
type serialStrategy struct {
	active *Tx
}

func newSerialStrategy() *serialStrategy {
	return &serialStrategy{}
}

func (s *serialStrategy) begin(tx *Tx) error {
	if s.active != nil {
		return &errors.TxAlreadyRunningError{ID: s.active.ID}
	}
	s.active = tx
	return nil
}

func (s *serialStrategy) get(tx *Tx, t *Table, key []byte) ([]byte, error) {
	tk := types.TableKey(t.Name, key)
	if w, ok := tx.writeSet[tk]; ok {
		return types.CloneBytes(w.value), nil
	}
	if _, ok := tx.deleteSet[tk]; ok {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}

	e := t.get(key)
	if e == nil {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}
	return types.CloneBytes(e.Value), nil
}

func (s *serialStrategy) set(tx *Tx, t *Table, key, value []byte) error {
	tx.stageWrite(t, key, value)
	return nil
}

func (s *serialStrategy) del(tx *Tx, t *Table, key []byte) error {
	tx.stageDelete(t, key)
	return nil
}

// scan no modo serial aceita qualquer tabela, inclusive hash
// (modo oráculo: o comportamento mais permissivo).
func (s *serialStrategy) scan(tx *Tx, t *Table, lo, hi []byte, limit int) ([]types.KeyValue, error) {
	rows := make(map[string][]byte)
	t.ascendRange(lo, hi, func(key []byte, e *Entry) bool {
		rows[string(key)] = e.Value
		return true
	})
	return assembleScan(t, tx, lo, hi, rows, limit), nil
}

// commit instala o write set e apaga o delete set, tudo sob o mutex
// global do engine.
func (s *serialStrategy) commit(tx *Tx) error {
	for _, w := range tx.writeSet {
		installValue(w.table, w.key, w.value)
	}
	for _, d := range tx.deleteSet {
		d.table.delete(d.key)
	}
	s.active = nil
	return nil
}

func (s *serialStrategy) rollback(tx *Tx) error {
	s.active = nil
	return nil
}

func (s *serialStrategy) allowsOneShotWrite() bool {
	return true
}

func (s *serialStrategy) allowsHashScan() bool {
	return true
}

func (s *serialStrategy) oneShotSet(t *Table, key, value []byte) error {
	v := types.CloneBytes(value)
	if v == nil {
		v = []byte{}
	}
	installValue(t, key, v)
	return nil
}

func (s *serialStrategy) oneShotDel(t *Table, key []byte) error {
	t.delete(key)
	return nil
}

// installValue grava um valor commitado, avançando o contador de versão
// do Entry (inócuo fora do OCC, mantém o metadado uniforme).
func installValue(t *Table, key, value []byte) {
	if e := t.get(key); e != nil {
		e.Value = value
		e.Meta++
		return
	}
	t.put(key, &Entry{Value: value, Meta: 1})
}
