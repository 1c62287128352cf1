package kcv

import (
	"bytes"

	"github.com/bobboyms/graphstore/pkg/codec"
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/storage"
	"github.com/bobboyms/graphstore/pkg/types"
)

// compositeAdapter guarda cada coluna como uma linha própria do engine,
// chave = rowkey ∥ 0x00 ∥ coluna. Enumerar uma linha vira um scan de
// range, então o esquema exige tabelas range.
type compositeAdapter struct {
	engine *storage.Engine
}

func (a *compositeAdapter) Scheme() Scheme {
	return SchemeComposite
}

func (a *compositeAdapter) TableMethod() types.PartitionMethod {
	return types.Range
}

func (a *compositeAdapter) SetColumn(txID int64, table string, rowkey, column, value []byte) error {
	key, err := codec.ComposeKey(rowkey, column)
	if err != nil {
		return err
	}
	return a.engine.Set(txID, table, key, value)
}

func (a *compositeAdapter) GetColumn(txID int64, table string, rowkey, column []byte) ([]byte, error) {
	key, err := codec.ComposeKey(rowkey, column)
	if err != nil {
		return nil, err
	}
	return a.engine.Get(txID, table, key)
}

func (a *compositeAdapter) DeleteColumn(txID int64, table string, rowkey, column []byte) error {
	key, err := codec.ComposeKey(rowkey, column)
	if err != nil {
		return err
	}
	return a.engine.Del(txID, table, key)
}

// rowBounds monta o intervalo de scan que cobre todas as colunas de
// rowkey: [rowkey ∥ 0x00, rowkey ∥ 0x01]. Como toda chave composta é
// rowkey ∥ 0x00 ∥ coluna com coluna não vazia, o teto nunca colide.
func rowBounds(rowkey []byte) (lo, hi []byte) {
	lo = make([]byte, 0, len(rowkey)+1)
	lo = append(lo, rowkey...)
	lo = append(lo, 0x00)
	hi = make([]byte, 0, len(rowkey)+1)
	hi = append(hi, rowkey...)
	hi = append(hi, 0x01)
	return lo, hi
}

func (a *compositeAdapter) GetAllColumns(txID int64, table string, rowkey []byte) ([]types.ColumnValue, error) {
	if err := codec.ValidateComponent("rowkey", rowkey); err != nil {
		return nil, err
	}

	lo, hi := rowBounds(rowkey)
	kvs, err := a.engine.Scan(txID, table, lo, hi, 0)
	if err != nil {
		return nil, err
	}

	cols := make([]types.ColumnValue, 0, len(kvs))
	for _, kv := range kvs {
		r, c, err := codec.SplitKey(kv.Key)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(r, rowkey) {
			return nil, &errors.CorruptedError{
				Msg: "scan returned a key outside the requested row",
			}
		}
		cols = append(cols, types.ColumnValue{Column: c, Value: kv.Value})
	}
	return cols, nil
}

func (a *compositeAdapter) DeleteRow(txID int64, table string, rowkey []byte) error {
	cols, err := a.GetAllColumns(txID, table, rowkey)
	if err != nil {
		return err
	}
	for _, cv := range cols {
		key, err := codec.ComposeKey(rowkey, cv.Column)
		if err != nil {
			return err
		}
		if err := a.engine.Del(txID, table, key); err != nil {
			return err
		}
	}
	return nil
}

func (a *compositeAdapter) SetColumns(txID int64, table string, rowkey []byte, cols []types.ColumnValue) error {
	for _, cv := range cols {
		if err := a.SetColumn(txID, table, rowkey, cv.Column, cv.Value); err != nil {
			return err
		}
	}
	return nil
}
