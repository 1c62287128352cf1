package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Formato das colunas serializadas (todos os inteiros little-endian):
//
//	u32 count
//	count × { u32 col_len, col_bytes, u32 val_len, val_bytes }
//
// Colunas em ordem estritamente crescente de bytes, sem duplicatas.
// O layout é estável entre versões — o adapter KCV depende dele.

// SerializeColumns empacota as colunas de uma linha em um único valor.
func SerializeColumns(cols []types.ColumnValue) ([]byte, error) {
	if len(cols) == 0 {
		return nil, &errors.InvalidArgumentError{
			Msg: "serialized row must have at least one column",
		}
	}

	size := 4
	for i, cv := range cols {
		if len(cv.Column) == 0 {
			return nil, &errors.InvalidArgumentError{
				Msg: fmt.Sprintf("column %d is empty", i),
			}
		}
		if i > 0 && bytes.Compare(cols[i-1].Column, cv.Column) >= 0 {
			return nil, &errors.InvalidArgumentError{
				Msg: fmt.Sprintf("columns must be strictly ascending (position %d)", i),
			}
		}
		size += 8 + len(cv.Column) + len(cv.Value)
	}

	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(cols)))
	for _, cv := range cols {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(cv.Column)))
		out = append(out, cv.Column...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(cv.Value)))
		out = append(out, cv.Value...)
	}
	return out, nil
}

// DeserializeColumns desfaz SerializeColumns. Qualquer violação do layout
// (leitura curta, contagem errada, colunas fora de ordem, lixo no final)
// falha com Corrupted.
func DeserializeColumns(data []byte) ([]types.ColumnValue, error) {
	if len(data) < 4 {
		return nil, &errors.CorruptedError{Msg: "short read: missing column count"}
	}
	count := binary.LittleEndian.Uint32(data[:4])
	if count == 0 {
		return nil, &errors.CorruptedError{Msg: "column count is zero"}
	}

	cols := make([]types.ColumnValue, 0, count)
	pos := 4
	var prev []byte
	for i := uint32(0); i < count; i++ {
		col, next, err := readChunk(data, pos, "column")
		if err != nil {
			return nil, err
		}
		val, after, err := readChunk(data, next, "value")
		if err != nil {
			return nil, err
		}
		pos = after

		if prev != nil && bytes.Compare(prev, col) >= 0 {
			return nil, &errors.CorruptedError{
				Msg: fmt.Sprintf("columns out of order at record %d", i),
			}
		}
		prev = col
		cols = append(cols, types.ColumnValue{Column: col, Value: val})
	}

	if pos != len(data) {
		return nil, &errors.CorruptedError{
			Msg: fmt.Sprintf("%d trailing bytes after last record", len(data)-pos),
		}
	}
	return cols, nil
}

// readChunk lê um u32 de tamanho seguido dos bytes, devolvendo cópia.
func readChunk(data []byte, pos int, what string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, &errors.CorruptedError{Msg: "short read: missing " + what + " length"}
	}
	n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, 0, &errors.CorruptedError{Msg: "short read: truncated " + what}
	}
	out := make([]byte, n)
	copy(out, data[pos:pos+n])
	return out, pos + n, nil
}
