package storage

import (
	"bytes"

	"github.com/google/btree"

	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Entry é o registro armazenado: valor + metadado de CC.
// Sob 2PL, Meta é o id da transação que segura o lock (0 = livre).
// Sob OCC, Meta é o contador de versão (1 no primeiro commit, +1 a cada write).
// Valores commitados nunca são nil; Value nil marca um phantom guard do 2PL.
type Entry struct {
	Value []byte
	Meta  int64
}

func (e *Entry) isPhantom() bool {
	return e.Value == nil
}

// item embrulha (chave, entry) para a árvore ordenada
type item struct {
	key   []byte
	entry *Entry
}

const btreeDegree = 32

// Table é um mapa ordenado de chave → Entry, comparador lexicográfico.
// Toda mutação acontece sob o mutex global do engine; a tabela em si
// não carrega lock próprio.
type Table struct {
	ID     int64
	Name   string
	Method types.PartitionMethod

	rows *btree.BTreeG[*item]
}

func newTable(id int64, name string, method types.PartitionMethod) *Table {
	return &Table{
		ID:     id,
		Name:   name,
		Method: method,
		rows: btree.NewG(btreeDegree, func(a, b *item) bool {
			return bytes.Compare(a.key, b.key) < 0
		}),
	}
}

func (t *Table) get(key []byte) *Entry {
	it, ok := t.rows.Get(&item{key: key})
	if !ok {
		return nil
	}
	return it.entry
}

func (t *Table) put(key []byte, e *Entry) {
	t.rows.ReplaceOrInsert(&item{key: types.CloneBytes(key), entry: e})
}

func (t *Table) delete(key []byte) {
	t.rows.Delete(&item{key: key})
}

func (t *Table) len() int {
	return t.rows.Len()
}

// ascendRange percorre [lo, hi] inclusivo nas duas pontas, em ordem
// crescente. lo nil = início da tabela; hi nil = até o fim.
// fn retorna false para interromper.
func (t *Table) ascendRange(lo, hi []byte, fn func(key []byte, e *Entry) bool) {
	visit := func(it *item) bool {
		if hi != nil && bytes.Compare(it.key, hi) > 0 {
			return false
		}
		return fn(it.key, it.entry)
	}
	if lo == nil {
		t.rows.Ascend(visit)
		return
	}
	t.rows.AscendGreaterOrEqual(&item{key: lo}, visit)
}

// Catalog mapeia nome de tabela → tabela, com ids únicos monotônicos.
// Tabelas são criadas e nunca removidas durante a vida do engine.
type Catalog struct {
	tables map[string]*Table
	nextID int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]*Table),
		nextID: 1,
	}
}

func (c *Catalog) CreateTable(name string, method types.PartitionMethod) (*Table, error) {
	if len(name) == 0 {
		return nil, &errors.InvalidArgumentError{Msg: "table name must not be empty"}
	}
	if bytes.IndexByte([]byte(name), 0x00) >= 0 {
		return nil, &errors.InvalidArgumentError{Msg: "table name must not contain the 0x00 byte"}
	}
	if method != types.Hash && method != types.Range {
		return nil, &errors.InvalidPartitionMethodError{Method: method.String()}
	}

	if _, exists := c.tables[name]; exists {
		return nil, &errors.TableExistsError{Name: name}
	}

	table := newTable(c.nextID, name, method)
	c.nextID++
	c.tables[name] = table
	return table, nil
}

func (c *Catalog) GetTableByName(name string) (*Table, error) {
	table, ok := c.tables[name]
	if !ok {
		return nil, &errors.TableNotFoundError{Name: name}
	}
	return table, nil
}

func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}
