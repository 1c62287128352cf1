package storage

import (
	"bytes"
	"sort"

	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/types"
)

// Strategy seleciona o controle de concorrência do engine.
type Strategy int

const (
	StrategySerial Strategy = iota // uma transação por vez (oráculo de referência)
	StrategyTwoPL                  // 2PL estrito, no-wait
	StrategyOCC                    // otimista, validação de versão no commit
)

func (s Strategy) String() string {
	if s < StrategySerial || s > StrategyOCC {
		return "unknown"
	}
	return [...]string{"serial", "2pl", "occ"}[s]
}

// ParseStrategy converte o nome textual usado na configuração.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "serial":
		return StrategySerial, true
	case "2pl", "twopl":
		return StrategyTwoPL, true
	case "occ":
		return StrategyOCC, true
	default:
		return StrategySerial, false
	}
}

// strategy é o contrato interno que serial/2PL/OCC implementam.
// Todos os métodos rodam sob o mutex global do engine: as estruturas
// podem ser tocadas livremente, a estratégia só cuida do protocolo.
type strategy interface {
	// begin registra a transação recém-criada (serial rejeita a segunda)
	begin(tx *Tx) error
	get(tx *Tx, t *Table, key []byte) ([]byte, error)
	set(tx *Tx, t *Table, key, value []byte) error
	del(tx *Tx, t *Table, key []byte) error
	scan(tx *Tx, t *Table, lo, hi []byte, limit int) ([]types.KeyValue, error)
	// commit aplica e destrói; o engine remove a tx do registro em
	// qualquer caso (falha de commit é fatal para a transação)
	commit(tx *Tx) error
	rollback(tx *Tx) error
	// allowsOneShotWrite: só o modo serial aceita writes com tx id 0
	allowsOneShotWrite() bool
	// allowsHashScan: só o modo serial (oráculo) aceita scan em tabela
	// hash; vale para qualquer tx id, inclusive one-shot
	allowsHashScan() bool
	// oneShotSet/oneShotDel agem direto no storage (apenas modo serial)
	oneShotSet(t *Table, key, value []byte) error
	oneShotDel(t *Table, key []byte) error
}

// checkScanRange valida os limites de um scan: com lo e hi presentes,
// lo precisa ser <= hi.
func checkScanRange(lo, hi []byte) error {
	if lo != nil && hi != nil && bytes.Compare(lo, hi) > 0 {
		return &errors.InvalidArgumentError{Msg: "scan range start is greater than end"}
	}
	return nil
}

func inRange(key, lo, hi []byte) bool {
	if lo != nil && bytes.Compare(key, lo) < 0 {
		return false
	}
	if hi != nil && bytes.Compare(key, hi) > 0 {
		return false
	}
	return true
}

// assembleScan monta o resultado final de um scan: linhas commitadas +
// overlay do write set / delete set da transação (tx pode ser nil para
// one-shot), ordenado por chave e truncado em limit.
func assembleScan(t *Table, tx *Tx, lo, hi []byte, rows map[string][]byte, limit int) []types.KeyValue {
	if tx != nil {
		for _, w := range tx.writeSet {
			if w.table == t && inRange(w.key, lo, hi) {
				rows[string(w.key)] = w.value
			}
		}
		for _, d := range tx.deleteSet {
			if d.table == t && inRange(d.key, lo, hi) {
				delete(rows, string(d.key))
			}
		}
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]types.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.KeyValue{
			Key:   []byte(k),
			Value: types.CloneBytes(rows[k]),
		})
	}
	return out
}
