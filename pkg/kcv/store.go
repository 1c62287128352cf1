package kcv

import (
	"bytes"

	"github.com/bobboyms/graphstore/pkg/codec"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Features publica as capacidades da store para o host de grafo.
type Features struct {
	OrderedScan   bool
	KeyOrdered    bool
	Transactional bool
	Persistent    bool
	BatchMutation bool
	CellTTL       bool
	RowTTL        bool
	Timestamps    bool
}

// Store é a superfície de mutação/leitura de uma tabela KCV, consumida
// pela camada de grafo. Criada por StoreManager.OpenStore.
type Store struct {
	name    string
	manager *StoreManager
}

func (s *Store) Name() string {
	return s.name
}

// Features são fixas para este backend: ordenado e transacional,
// nada de persistência nem TTL.
func (s *Store) Features() Features {
	return Features{
		OrderedScan:   true,
		KeyOrdered:    true,
		Transactional: true,
		Persistent:    false,
		BatchMutation: true,
		CellTTL:       false,
		RowTTL:        false,
		Timestamps:    false,
	}
}

// txID resolve o id do engine: tx nil = one-shot.
func txID(tx *StoreTx) int64 {
	if tx == nil {
		return 0
	}
	return tx.ID
}

// Mutate aplica deleções e depois adições, nessa ordem, para respeitar
// a semântica delete-then-reinsert do host.
func (s *Store) Mutate(rowkey []byte, additions []types.ColumnValue, deletions [][]byte, tx *StoreTx) error {
	id := txID(tx)
	for _, col := range deletions {
		if err := s.manager.adapter.DeleteColumn(id, s.name, rowkey, col); err != nil {
			return err
		}
	}
	if len(additions) > 0 {
		if err := s.manager.adapter.SetColumns(id, s.name, rowkey, additions); err != nil {
			return err
		}
	}
	return nil
}

// GetSlice retorna as colunas de rowkey no intervalo [colStart, colEnd),
// ordem crescente, truncado em limit (<= 0 = sem limite). colStart vazio
// = do começo; colEnd vazio = até o fim da linha.
func (s *Store) GetSlice(rowkey, colStart, colEnd []byte, limit int, tx *StoreTx) ([]types.ColumnValue, error) {
	cols, err := s.manager.adapter.GetAllColumns(txID(tx), s.name, rowkey)
	if err != nil {
		return nil, err
	}

	out := make([]types.ColumnValue, 0, len(cols))
	for _, cv := range cols {
		if len(colStart) > 0 && bytes.Compare(cv.Column, colStart) < 0 {
			continue
		}
		if len(colEnd) > 0 && bytes.Compare(cv.Column, colEnd) >= 0 {
			break // colunas vêm ordenadas
		}
		out = append(out, cv)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetColumn lê uma única célula.
func (s *Store) GetColumn(rowkey, column []byte, tx *StoreTx) ([]byte, error) {
	return s.manager.adapter.GetColumn(txID(tx), s.name, rowkey, column)
}

// DeleteRow remove a linha inteira.
func (s *Store) DeleteRow(rowkey []byte, tx *StoreTx) error {
	return s.manager.adapter.DeleteRow(txID(tx), s.name, rowkey)
}

// GetKeys devolve as rowkeys do intervalo [keyStart, keyEnd] que têm ao
// menos uma coluna em [colStart, colEnd), deduplicadas (no esquema
// composto cada coluna é uma linha do engine) e em ordem crescente,
// truncadas em limit.
func (s *Store) GetKeys(keyStart, keyEnd, colStart, colEnd []byte, limit int, tx *StoreTx) ([][]byte, error) {
	id := txID(tx)

	if s.manager.scheme == SchemeComposite {
		return s.getKeysComposite(id, keyStart, keyEnd, colStart, colEnd, limit)
	}
	return s.getKeysSerialized(id, keyStart, keyEnd, colStart, colEnd, limit)
}

func columnInRange(col, colStart, colEnd []byte) bool {
	if len(colStart) > 0 && bytes.Compare(col, colStart) < 0 {
		return false
	}
	if len(colEnd) > 0 && bytes.Compare(col, colEnd) >= 0 {
		return false
	}
	return true
}

func (s *Store) getKeysComposite(id int64, keyStart, keyEnd, colStart, colEnd []byte, limit int) ([][]byte, error) {
	// Chaves do engine são rowkey ∥ 0x00 ∥ coluna; o intervalo
	// [keyStart ∥ 0x00, keyEnd ∥ 0x01] cobre todas as colunas das
	// rowkeys pedidas, inclusive as de keyEnd.
	var lo, hi []byte
	if len(keyStart) > 0 {
		lo, _ = rowBounds(keyStart)
	}
	if len(keyEnd) > 0 {
		_, hi = rowBounds(keyEnd)
	}

	kvs, err := s.manager.engine.Scan(id, s.name, lo, hi, 0)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	var last []byte
	for _, kv := range kvs {
		row, col, err := codec.SplitKey(kv.Key)
		if err != nil {
			return nil, err
		}
		if !columnInRange(col, colStart, colEnd) {
			continue
		}
		if last != nil && bytes.Equal(row, last) {
			continue // dedup: várias colunas da mesma rowkey
		}
		last = row
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) getKeysSerialized(id int64, keyStart, keyEnd, colStart, colEnd []byte, limit int) ([][]byte, error) {
	var lo, hi []byte
	if len(keyStart) > 0 {
		lo = keyStart
	}
	if len(keyEnd) > 0 {
		hi = keyEnd
	}

	// Em tabela hash isso só funciona no modo serial (oráculo);
	// 2PL/OCC respondem UnsupportedOperation e o erro sobe intacto.
	kvs, err := s.manager.engine.Scan(id, s.name, lo, hi, 0)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	for _, kv := range kvs {
		cols, err := codec.DeserializeColumns(kv.Value)
		if err != nil {
			return nil, err
		}
		for _, cv := range cols {
			if columnInRange(cv.Column, colStart, colEnd) {
				out = append(out, kv.Key)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
