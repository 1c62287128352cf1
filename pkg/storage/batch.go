package storage

import (
	"github.com/bobboyms/graphstore/pkg/errors"
	"github.com/bobboyms/graphstore/pkg/metrics"
)

// BatchOpType identifica a operação de um item do batch.
type BatchOpType int

const (
	BatchGet BatchOpType = iota
	BatchSet
	BatchDel
)

func (o BatchOpType) String() string {
	if o < BatchGet || o > BatchDel {
		return "unknown"
	}
	return [...]string{"get", "set", "del"}[o]
}

// BatchOp é um item de BatchExecute.
type BatchOp struct {
	Op    BatchOpType
	Table string
	Key   []byte
	Value []byte // só para BatchSet
}

// BatchResult é o resultado por operação, na mesma ordem do input.
type BatchResult struct {
	Value []byte // preenchido para BatchGet bem sucedido
	Err   error
}

// BatchExecute aplica a sequência sob um único tx id, em ordem.
// NÃO é atômico entre operações — é açúcar para um loop: cada op
// executa e registra seu resultado, e falhas não interrompem as
// seguintes. Se alguma falhou, o erro final é PartialSuccess.
func (e *Engine) BatchExecute(txID int64, ops []BatchOp) ([]BatchResult, error) {
	results := make([]BatchResult, len(ops))
	failed := 0

	for i, op := range ops {
		switch op.Op {
		case BatchGet:
			v, err := e.Get(txID, op.Table, op.Key)
			results[i] = BatchResult{Value: v, Err: err}
		case BatchSet:
			results[i] = BatchResult{Err: e.Set(txID, op.Table, op.Key, op.Value)}
		case BatchDel:
			results[i] = BatchResult{Err: e.Del(txID, op.Table, op.Key)}
		default:
			results[i] = BatchResult{Err: &errors.InvalidArgumentError{
				Msg: "unknown batch operation",
			}}
		}
		if results[i].Err != nil {
			failed++
		}
	}

	metrics.OperationsTotal.WithLabelValues("batch").Inc()
	if failed > 0 {
		return results, &errors.PartialSuccessError{Failed: failed, Total: len(ops)}
	}
	return results, nil
}
