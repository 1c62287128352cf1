package storage

import (
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// twoPLStrategy implementa 2PL estrito com política no-wait: locks
// exclusivos por linha guardados em Entry.Meta (id da transação dona,
// 0 = livre). Conflito falha na hora com KeyLocked; quem decide
// abortar e tentar de novo é o caller.
//
// Leituras de chave ausente plantam um phantom guard: um Entry sem
// valor, com o lock desta transação, que impede outra transação de
// inserir a chave antes do nosso commit. Guards valem para toda
// tabela (tabelas range exigem; aplicar uniforme não custa nada).
type twoPLStrategy struct{}

func newTwoPLStrategy() *twoPLStrategy {
	return &twoPLStrategy{}
}

func (s *twoPLStrategy) begin(tx *Tx) error {
	return nil
}

// acquire pega o lock exclusivo da chave para tx e registra no read set.
// Para chave ausente, cria o phantom guard. Retorna o registro de leitura.
func (s *twoPLStrategy) acquire(tx *Tx, t *Table, key []byte) (*txRead, error) {
	tk := types.TableKey(t.Name, key)
	if r, ok := tx.readSet[tk]; ok {
		return r, nil
	}

	e := t.get(key)
	if e == nil {
		guard := &Entry{Value: nil, Meta: tx.ID}
		t.put(key, guard)
		r := &txRead{table: t, key: types.CloneBytes(key), entry: guard}
		tx.readSet[tk] = r
		tx.phantoms[tk] = struct{}{}
		return r, nil
	}

	if e.Meta != 0 && e.Meta != tx.ID {
		return nil, &errors.KeyLockedError{Table: t.Name, Key: key, Owner: e.Meta}
	}

	e.Meta = tx.ID
	r := &txRead{
		table: t,
		key:   types.CloneBytes(key),
		entry: e,
		value: types.CloneBytes(e.Value),
	}
	tx.readSet[tk] = r
	if e.isPhantom() {
		// Guard que nós mesmos criamos numa operação anterior
		tx.phantoms[tk] = struct{}{}
	}
	return r, nil
}

func (s *twoPLStrategy) get(tx *Tx, t *Table, key []byte) ([]byte, error) {
	tk := types.TableKey(t.Name, key)
	if w, ok := tx.writeSet[tk]; ok {
		return types.CloneBytes(w.value), nil
	}
	if _, ok := tx.deleteSet[tk]; ok {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}

	r, err := s.acquire(tx, t, key)
	if err != nil {
		return nil, err
	}
	if tx.isPhantom(tk) {
		return nil, &errors.KeyNotFoundError{Table: t.Name, Key: key}
	}
	return types.CloneBytes(r.value), nil
}

func (s *twoPLStrategy) set(tx *Tx, t *Table, key, value []byte) error {
	if _, err := s.acquire(tx, t, key); err != nil {
		return err
	}
	tx.stageWrite(t, key, value)
	return nil
}

func (s *twoPLStrategy) del(tx *Tx, t *Table, key []byte) error {
	if _, err := s.acquire(tx, t, key); err != nil {
		return err
	}
	tx.stageDelete(t, key)
	return nil
}

// scan percorre [lo, hi] trancando cada Entry visitado. No primeiro
// conflito, solta apenas os locks que ESTE scan adquiriu e falha com
// KeyLocked — locks de operações anteriores da mesma transação ficam.
func (s *twoPLStrategy) scan(tx *Tx, t *Table, lo, hi []byte, limit int) ([]types.KeyValue, error) {
	if t.Method != types.Range {
		return nil, &errors.UnsupportedOperationError{Op: "scan", Table: t.Name}
	}

	type scanLock struct {
		tk string
		e  *Entry
	}
	var acquired []scanLock
	var conflict error

	rows := make(map[string][]byte)
	t.ascendRange(lo, hi, func(key []byte, e *Entry) bool {
		tk := types.TableKey(t.Name, key)
		if _, seen := tx.readSet[tk]; !seen {
			if e.Meta != 0 && e.Meta != tx.ID {
				conflict = &errors.KeyLockedError{Table: t.Name, Key: types.CloneBytes(key), Owner: e.Meta}
				return false
			}
			e.Meta = tx.ID
			tx.readSet[tk] = &txRead{
				table: t,
				key:   types.CloneBytes(key),
				entry: e,
				value: types.CloneBytes(e.Value),
			}
			acquired = append(acquired, scanLock{tk: tk, e: e})
		}
		if !e.isPhantom() {
			rows[string(key)] = e.Value
		}
		return true
	})

	if conflict != nil {
		for _, l := range acquired {
			l.e.Meta = 0
			delete(tx.readSet, l.tk)
		}
		return nil, conflict
	}

	return assembleScan(t, tx, lo, hi, rows, limit), nil
}

// commit instala writes, apaga deletes, solta os locks de leitura e
// remove guards que ninguém escreveu. A transação morre aqui.
func (s *twoPLStrategy) commit(tx *Tx) error {
	for tk, w := range tx.writeSet {
		r := tx.readSet[tk]
		r.entry.Value = w.value
		r.entry.Meta = 0
	}
	for _, d := range tx.deleteSet {
		d.table.delete(d.key)
	}
	for tk, r := range tx.readSet {
		if _, ok := tx.writeSet[tk]; ok {
			continue
		}
		if _, ok := tx.deleteSet[tk]; ok {
			continue
		}
		if tx.isPhantom(tk) {
			r.table.delete(r.key)
			continue
		}
		r.entry.Meta = 0
	}
	return nil
}

// rollback só solta locks e remove guards; nenhum valor muda no storage.
func (s *twoPLStrategy) rollback(tx *Tx) error {
	for tk, r := range tx.readSet {
		if tx.isPhantom(tk) {
			r.table.delete(r.key)
			continue
		}
		r.entry.Meta = 0
	}
	return nil
}

func (s *twoPLStrategy) allowsOneShotWrite() bool {
	return false
}

func (s *twoPLStrategy) allowsHashScan() bool {
	return false
}

func (s *twoPLStrategy) oneShotSet(t *Table, key, value []byte) error {
	return &errors.OneShotWriteNotAllowedError{}
}

func (s *twoPLStrategy) oneShotDel(t *Table, key []byte) error {
	return &errors.OneShotWriteNotAllowedError{}
}
