// Package kcv traduz o modelo (rowkey, coluna) → valor do host de grafo
// para o modelo chave → valor do engine, sob dois esquemas de
// armazenamento intercambiáveis: chaves compostas (cada coluna vira uma
// linha do engine) e colunas serializadas (a linha inteira empacotada em
// um único valor).
package kcv

import (
	"github.com/bobboyms/graphstore/pkg/storage"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Scheme seleciona o esquema de armazenamento. Escolhido uma vez no
// startup (config) e fixo pela vida do manager.
type Scheme int

const (
	SchemeComposite  Scheme = iota // rowkey ∥ 0x00 ∥ coluna, tabela range
	SchemeSerialized               // linha empacotada, funciona em tabela hash
)

func (s Scheme) String() string {
	if s < SchemeComposite || s > SchemeSerialized {
		return "unknown"
	}
	return [...]string{"composite", "serialized"}[s]
}

// ParseScheme converte o nome textual usado na configuração.
func ParseScheme(s string) (Scheme, bool) {
	switch s {
	case "composite":
		return SchemeComposite, true
	case "serialized":
		return SchemeSerialized, true
	default:
		return SchemeComposite, false
	}
}

// Adapter é a superfície row/coluna sobre o engine. As duas
// implementações validam rowkey/coluna (não vazios, livres de 0x00)
// antes de chamar o codec, e mantêm a mesma política de erros:
// coluna ausente em leitura = KeyNotFound; delete de coluna ou linha
// ausente = sucesso.
type Adapter interface {
	SetColumn(txID int64, table string, rowkey, column, value []byte) error
	GetColumn(txID int64, table string, rowkey, column []byte) ([]byte, error)
	DeleteColumn(txID int64, table string, rowkey, column []byte) error
	GetAllColumns(txID int64, table string, rowkey []byte) ([]types.ColumnValue, error)
	DeleteRow(txID int64, table string, rowkey []byte) error
	SetColumns(txID int64, table string, rowkey []byte, cols []types.ColumnValue) error

	Scheme() Scheme
	// TableMethod é o método de partição que tabelas novas deste
	// esquema precisam (composite exige range)
	TableMethod() types.PartitionMethod
}

// NewAdapter monta o adapter do esquema pedido sobre o engine.
func NewAdapter(engine *storage.Engine, scheme Scheme) Adapter {
	if scheme == SchemeSerialized {
		return &serializedAdapter{engine: engine}
	}
	return &compositeAdapter{engine: engine}
}
