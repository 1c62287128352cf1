package kcv

import (
	"bytes"
	"sort"

	"github.com/bobboyms/graphstore/pkg/codec"
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/storage"
	"github.com/bobboyms/graphstore/pkg/types"
)

// serializedAdapter empacota todas as colunas de uma linha em um único
// valor do engine (formato do pkg/codec), chave = rowkey. Toda mutação
// é read-modify-write do pacote; funciona em tabela hash ou range.
type serializedAdapter struct {
	engine *storage.Engine
}

func (a *serializedAdapter) Scheme() Scheme {
	return SchemeSerialized
}

func (a *serializedAdapter) TableMethod() types.PartitionMethod {
	return types.Hash
}

func validateRowColumn(rowkey, column []byte) error {
	if err := codec.ValidateComponent("rowkey", rowkey); err != nil {
		return err
	}
	return codec.ValidateComponent("column", column)
}

// readRow carrega e desempacota a linha. Linha ausente retorna slice
// vazio, sem erro.
func (a *serializedAdapter) readRow(txID int64, table string, rowkey []byte) ([]types.ColumnValue, error) {
	packed, err := a.engine.Get(txID, table, rowkey)
	if err != nil {
		if errors.IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return codec.DeserializeColumns(packed)
}

// writeRow grava a linha de volta; linha sem colunas vira delete da chave.
func (a *serializedAdapter) writeRow(txID int64, table string, rowkey []byte, cols []types.ColumnValue) error {
	if len(cols) == 0 {
		return a.engine.Del(txID, table, rowkey)
	}
	packed, err := codec.SerializeColumns(cols)
	if err != nil {
		return err
	}
	return a.engine.Set(txID, table, rowkey, packed)
}

// searchColumn localiza a coluna no slice ordenado.
func searchColumn(cols []types.ColumnValue, column []byte) (int, bool) {
	i := sort.Search(len(cols), func(j int) bool {
		return bytes.Compare(cols[j].Column, column) >= 0
	})
	return i, i < len(cols) && bytes.Equal(cols[i].Column, column)
}

// upsertColumn insere ou substitui mantendo a ordem crescente.
func upsertColumn(cols []types.ColumnValue, cv types.ColumnValue) []types.ColumnValue {
	i, found := searchColumn(cols, cv.Column)
	if found {
		cols[i].Value = cv.Value
		return cols
	}
	cols = append(cols, types.ColumnValue{})
	copy(cols[i+1:], cols[i:])
	cols[i] = cv
	return cols
}

func (a *serializedAdapter) SetColumn(txID int64, table string, rowkey, column, value []byte) error {
	if err := validateRowColumn(rowkey, column); err != nil {
		return err
	}

	cols, err := a.readRow(txID, table, rowkey)
	if err != nil {
		return err
	}
	cols = upsertColumn(cols, types.ColumnValue{
		Column: types.CloneBytes(column),
		Value:  types.CloneBytes(value),
	})
	return a.writeRow(txID, table, rowkey, cols)
}

func (a *serializedAdapter) GetColumn(txID int64, table string, rowkey, column []byte) ([]byte, error) {
	if err := validateRowColumn(rowkey, column); err != nil {
		return nil, err
	}

	packed, err := a.engine.Get(txID, table, rowkey)
	if err != nil {
		// Linha ausente = coluna ausente, na visão do caller
		return nil, err
	}
	cols, err := codec.DeserializeColumns(packed)
	if err != nil {
		return nil, err
	}

	if i, found := searchColumn(cols, column); found {
		return types.CloneBytes(cols[i].Value), nil
	}
	return nil, &errors.KeyNotFoundError{Table: table, Key: column}
}

func (a *serializedAdapter) DeleteColumn(txID int64, table string, rowkey, column []byte) error {
	if err := validateRowColumn(rowkey, column); err != nil {
		return err
	}

	cols, err := a.readRow(txID, table, rowkey)
	if err != nil {
		return err
	}
	i, found := searchColumn(cols, column)
	if !found {
		return nil
	}
	cols = append(cols[:i], cols[i+1:]...)
	return a.writeRow(txID, table, rowkey, cols)
}

func (a *serializedAdapter) GetAllColumns(txID int64, table string, rowkey []byte) ([]types.ColumnValue, error) {
	if err := codec.ValidateComponent("rowkey", rowkey); err != nil {
		return nil, err
	}
	return a.readRow(txID, table, rowkey)
}

func (a *serializedAdapter) DeleteRow(txID int64, table string, rowkey []byte) error {
	if err := codec.ValidateComponent("rowkey", rowkey); err != nil {
		return err
	}
	return a.engine.Del(txID, table, rowkey)
}

// SetColumns lê o pacote uma vez, aplica todas as colunas e grava uma vez.
func (a *serializedAdapter) SetColumns(txID int64, table string, rowkey []byte, newCols []types.ColumnValue) error {
	if err := codec.ValidateComponent("rowkey", rowkey); err != nil {
		return err
	}
	for _, cv := range newCols {
		if err := codec.ValidateComponent("column", cv.Column); err != nil {
			return err
		}
	}

	cols, err := a.readRow(txID, table, rowkey)
	if err != nil {
		return err
	}
	for _, cv := range newCols {
		cols = upsertColumn(cols, types.ColumnValue{
			Column: types.CloneBytes(cv.Column),
			Value:  types.CloneBytes(cv.Value),
		})
	}
	return a.writeRow(txID, table, rowkey, cols)
}
