package codec_test

import (
	"bytes"
	"testing"

	"github.com/bobboyms/graphstore/pkg/codec"
	"github.com/bobboyms/graphstore/pkg/errors"
)

func TestComposeAndSplitRoundTrip(t *testing.T) {
	cases := []struct {
		rowkey string
		column string
	}{
		{"v:1", "name"},
		{"a", "b"},
		{"vertex:12345", "edge:out:knows"},
	}

	for _, c := range cases {
		key, err := codec.ComposeKey([]byte(c.rowkey), []byte(c.column))
		if err != nil {
			t.Fatalf("ComposeKey(%q, %q) failed: %v", c.rowkey, c.column, err)
		}

		row, col, err := codec.SplitKey(key)
		if err != nil {
			t.Fatalf("SplitKey failed: %v", err)
		}
		if !bytes.Equal(row, []byte(c.rowkey)) {
			t.Errorf("Expected rowkey %q, got %q", c.rowkey, row)
		}
		if !bytes.Equal(col, []byte(c.column)) {
			t.Errorf("Expected column %q, got %q", c.column, col)
		}
	}
}

func TestComposeKeyLayout(t *testing.T) {
	key, err := codec.ComposeKey([]byte("row"), []byte("col"))
	if err != nil {
		t.Fatalf("ComposeKey failed: %v", err)
	}
	expected := []byte{'r', 'o', 'w', 0x00, 'c', 'o', 'l'}
	if !bytes.Equal(key, expected) {
		t.Errorf("Expected key % x, got % x", expected, key)
	}
}

func TestComposeKeyValidation(t *testing.T) {
	cases := []struct {
		name   string
		rowkey []byte
		column []byte
	}{
		{"empty rowkey", nil, []byte("c")},
		{"empty column", []byte("r"), nil},
		{"rowkey with zero byte", []byte("r\x00x"), []byte("c")},
		{"column with zero byte", []byte("r"), []byte("c\x00x")},
	}

	for _, c := range cases {
		_, err := codec.ComposeKey(c.rowkey, c.column)
		if errors.KindOf(err) != errors.KindInvalidArgument {
			t.Errorf("%s: expected InvalidArgument, got %v", c.name, err)
		}
	}
}

func TestSplitKeyWithoutSeparator(t *testing.T) {
	_, _, err := codec.SplitKey([]byte("no-separator-here"))
	if errors.KindOf(err) != errors.KindInvalidArgument {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
}

func TestSplitKeySplitsAtFirstSeparator(t *testing.T) {
	// A coluna pode conter 0x00 no ponto de vista do split (o valor
	// serializado de uma chave composta só tem um separador válido,
	// mas split é definido pelo PRIMEIRO 0x00)
	row, col, err := codec.SplitKey([]byte("a\x00b\x00c"))
	if err != nil {
		t.Fatalf("SplitKey failed: %v", err)
	}
	if string(row) != "a" || string(col) != "b\x00c" {
		t.Errorf("Expected (a, b\\x00c), got (%q, %q)", row, col)
	}
}
