package storage

import (
	"github.com/bobboyms/graphstore/pkg/types"
)

// txRead é um registro do read set: snapshot do Entry no momento da leitura.
// Sob 2PL, entry aponta para o Entry vivo no storage (que carrega nosso lock).
// Sob OCC, version guarda a versão commitada vista (0 = chave ausente).
type txRead struct {
	table   *Table
	key     []byte
	entry   *Entry
	value   []byte
	version int64
}

type txWrite struct {
	table *Table
	key   []byte
	value []byte
}

type txDelete struct {
	table *Table
	key   []byte
}

// Tx acumula o estado de uma transação em andamento. Nasce em Begin e
// morre em Commit/Rollback; o id nunca é reutilizado.
// Invariante: uma table_key nunca está em writeSet e deleteSet ao mesmo tempo
// (stageWrite/stageDelete limpam o set oposto).
type Tx struct {
	ID int64

	readSet   map[string]*txRead
	writeSet  map[string]*txWrite
	deleteSet map[string]*txDelete

	// phantoms: table_keys cujos Entries são guards criados por esta
	// transação em leituras de chave ausente (só 2PL usa)
	phantoms map[string]struct{}
}

func newTx(id int64) *Tx {
	return &Tx{
		ID:        id,
		readSet:   make(map[string]*txRead),
		writeSet:  make(map[string]*txWrite),
		deleteSet: make(map[string]*txDelete),
		phantoms:  make(map[string]struct{}),
	}
}

// stageWrite registra um write pendente e tira a chave do delete set.
// Valores nil normalizam para vazio: valores commitados nunca são nil.
func (tx *Tx) stageWrite(t *Table, key, value []byte) {
	tk := types.TableKey(t.Name, key)
	v := types.CloneBytes(value)
	if v == nil {
		v = []byte{}
	}
	tx.writeSet[tk] = &txWrite{table: t, key: types.CloneBytes(key), value: v}
	delete(tx.deleteSet, tk)
}

// stageDelete registra um delete pendente e tira a chave do write set.
func (tx *Tx) stageDelete(t *Table, key []byte) {
	tk := types.TableKey(t.Name, key)
	tx.deleteSet[tk] = &txDelete{table: t, key: types.CloneBytes(key)}
	delete(tx.writeSet, tk)
}

func (tx *Tx) isPhantom(tk string) bool {
	_, ok := tx.phantoms[tk]
	return ok
}
