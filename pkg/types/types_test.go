package types_test

import (
	"bytes"
	"testing"

	"github.com/bobboyms/graphstore/pkg/types"
)

func TestParsePartitionMethod(t *testing.T) {
	if m, ok := types.ParsePartitionMethod("hash"); !ok || m != types.Hash {
		t.Errorf("Expected (Hash, true), got (%v, %v)", m, ok)
	}
	if m, ok := types.ParsePartitionMethod("range"); !ok || m != types.Range {
		t.Errorf("Expected (Range, true), got (%v, %v)", m, ok)
	}
	if _, ok := types.ParsePartitionMethod("btree"); ok {
		t.Error("Expected ok=false for unknown method")
	}

	if types.Hash.String() != "hash" || types.Range.String() != "range" {
		t.Error("String() does not round-trip the method names")
	}
}

func TestTableKeyRoundTrip(t *testing.T) {
	tk := types.TableKey("vertices", []byte("v:1"))

	table, key, ok := types.SplitTableKey(tk)
	if !ok {
		t.Fatal("SplitTableKey failed")
	}
	if table != "vertices" {
		t.Errorf("Expected table \"vertices\", got %q", table)
	}
	if !bytes.Equal(key, []byte("v:1")) {
		t.Errorf("Expected key \"v:1\", got %q", key)
	}

	if _, _, ok := types.SplitTableKey("no-separator"); ok {
		t.Error("Expected ok=false without separator")
	}
}

func TestTableKeyIsUnambiguous(t *testing.T) {
	// (t, "ab") e (ta, "b") não podem colidir: o nome da tabela é
	// livre de 0x00, então o primeiro separador resolve
	a := types.TableKey("t", []byte("ab"))
	b := types.TableKey("ta", []byte("b"))
	if a == b {
		t.Error("Distinct (table, key) pairs flattened to the same table_key")
	}
}

func TestCloneBytes(t *testing.T) {
	src := []byte("data")
	dst := types.CloneBytes(src)
	src[0] = 'X'
	if string(dst) != "data" {
		t.Errorf("Clone shares backing array: %q", dst)
	}
	if types.CloneBytes(nil) != nil {
		t.Error("Expected nil clone of nil")
	}
}
