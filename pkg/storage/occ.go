package storage

import (
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// occStrategy implementa controle otimista: leituras gravam a versão
// vista no read set, escritas só tocam o write set, e o commit valida
// tudo sob o mutex global antes de instalar (validate-then-write).
// Versão divergente — inclusive chave que apareceu ou sumiu — falha
// com StaleData e a transação morre.
type occStrategy struct{}

func newOCCStrategy() *occStrategy {
	return &occStrategy{}
}

func (s *occStrategy) begin(tx *Tx) error {
	return nil
}

// record garante que a chave está no read set com a versão pré-transação.
func (s *occStrategy) record(tx *Tx, t *Table, key []byte) *txRead {
	tk := types.TableKey(t.Name, key)
	if r, ok := tx.readSet[tk]; ok {
		return r
	}

	r := &txRead{table: t, key: types.CloneBytes(key)}
	if e := t.get(key); e != nil {
		r.value = types.CloneBytes(e.Value)
		r.version = e.Meta
	}
	tx.readSet[tk] = r
	return r
}

func (s *occStrategy) get(tx *Tx, t *Table, key []byte) ([]byte, error) {
	tk := types.TableKey(t.Name, key)
	if w, ok := tx.writeSet[tk]; ok {
		return types.CloneBytes(w.value), nil
	}
	if _, ok := tx.deleteSet[tk]; ok {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}

	r := s.record(tx, t, key)
	if r.version == 0 {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}
	return types.CloneBytes(r.value), nil
}

func (s *occStrategy) set(tx *Tx, t *Table, key, value []byte) error {
	tx.stageWrite(t, key, value)
	return nil
}

// del faz uma leitura implícita antes de marcar: sem a versão pré-tx no
// read set, um delete cego passaria batido pela validação do commit.
func (s *occStrategy) del(tx *Tx, t *Table, key []byte) error {
	s.record(tx, t, key)
	tx.stageDelete(t, key)
	return nil
}

// scan grava no read set a versão de TODO Entry do intervalo (mesmo além
// do limit): o resultado truncado ainda depende do intervalo inteiro não
// ter mudado até o commit.
func (s *occStrategy) scan(tx *Tx, t *Table, lo, hi []byte, limit int) ([]types.KeyValue, error) {
	if t.Method != types.Range {
		return nil, &errors.UnsupportedOperationError{Op: "scan", Table: t.Name}
	}

	rows := make(map[string][]byte)
	t.ascendRange(lo, hi, func(key []byte, e *Entry) bool {
		tk := types.TableKey(t.Name, key)
		if _, ok := tx.readSet[tk]; !ok {
			tx.readSet[tk] = &txRead{
				table:   t,
				key:     types.CloneBytes(key),
				value:   types.CloneBytes(e.Value),
				version: e.Meta,
			}
		}
		rows[string(key)] = e.Value
		return true
	})

	return assembleScan(t, tx, lo, hi, rows, limit), nil
}

// commit valida o read set inteiro contra o estado atual e só então
// instala writes e deletes. Falha de validação é fatal: o engine
// descarta a transação.
func (s *occStrategy) commit(tx *Tx) error {
	for _, r := range tx.readSet {
		var current int64
		if e := r.table.get(r.key); e != nil {
			current = e.Meta
		}
		if current != r.version {
			return &errors.StaleDataError{Table: r.table.Name, Key: r.key}
		}
	}

	for _, w := range tx.writeSet {
		installValue(w.table, w.key, w.value)
	}
	for _, d := range tx.deleteSet {
		d.table.delete(d.key)
	}
	return nil
}

func (s *occStrategy) rollback(tx *Tx) error {
	return nil
}

func (s *occStrategy) allowsOneShotWrite() bool {
	return false
}

func (s *occStrategy) allowsHashScan() bool {
	return false
}

func (s *occStrategy) oneShotSet(t *Table, key, value []byte) error {
	return &errors.OneShotWriteNotAllowedError{}
}

func (s *occStrategy) oneShotDel(t *Table, key []byte) error {
	return &errors.OneShotWriteNotAllowedError{}
}
