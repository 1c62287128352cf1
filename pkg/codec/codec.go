package codec

import (
	"bytes"

	"github.com/bobboyms/graphstore/pkg/errors"
)

// Separador entre rowkey e coluna em chaves compostas.
// Como rowkey e coluna são livres de 0x00, o primeiro 0x00 é sempre o separador.
const keySeparator = 0x00

// ComposeKey monta a chave composta rowkey ∥ 0x00 ∥ column.
// Os dois operandos precisam ser não vazios e livres de 0x00.
func ComposeKey(rowkey, column []byte) ([]byte, error) {
	if err := ValidateComponent("rowkey", rowkey); err != nil {
		return nil, err
	}
	if err := ValidateComponent("column", column); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(rowkey)+1+len(column))
	out = append(out, rowkey...)
	out = append(out, keySeparator)
	out = append(out, column...)
	return out, nil
}

// SplitKey desfaz ComposeKey: separa no primeiro 0x00.
func SplitKey(key []byte) (rowkey, column []byte, err error) {
	i := bytes.IndexByte(key, keySeparator)
	if i < 0 {
		return nil, nil, &errors.InvalidArgumentError{
			Msg: "composite key has no separator byte",
		}
	}

	rowkey = make([]byte, i)
	copy(rowkey, key[:i])
	column = make([]byte, len(key)-i-1)
	copy(column, key[i+1:])
	return rowkey, column, nil
}

// ValidateComponent confere as precondições de rowkey/coluna.
func ValidateComponent(name string, b []byte) error {
	if len(b) == 0 {
		return &errors.InvalidArgumentError{Msg: name + " must not be empty"}
	}
	if bytes.IndexByte(b, keySeparator) >= 0 {
		return &errors.InvalidArgumentError{Msg: name + " must not contain the 0x00 byte"}
	}
	return nil
}
