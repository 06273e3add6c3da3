package commons

import (
	"fmt"
	"unicode/utf8"

	"github.com/burntcarrot/treepad/editscript"
)

// Operation represents an index-addressed edit.
type Operation struct {
	// Type represents the operation type, for example, insert, delete.
	Type string `json:"type"`

	// Position represents the index at which the operation has been made.
	Position int `json:"position"`

	// Value represents the content of the operation. A single character for inserts.
	Value string `json:"value,omitempty"`
}

const (
	OperationInsert = "insert"
	OperationDelete = "delete"
)

// FromEditScript converts an edit script into wire operations.
func FromEditScript(ops []editscript.Op) []Operation {
	operations := make([]Operation, len(ops))
	for i, op := range ops {
		switch op.Type {
		case editscript.Insert:
			operations[i] = Operation{Type: OperationInsert, Position: op.Pos, Value: string(op.Symbol)}
		case editscript.Delete:
			operations[i] = Operation{Type: OperationDelete, Position: op.Pos}
		}
	}
	return operations
}

// ToEditScript converts wire operations back into an edit script.
func ToEditScript(operations []Operation) ([]editscript.Op, error) {
	ops := make([]editscript.Op, len(operations))
	for i, o := range operations {
		switch o.Type {
		case OperationInsert:
			if utf8.RuneCountInString(o.Value) != 1 {
				return nil, fmt.Errorf("operation %d: insert value %q is not a single character", i, o.Value)
			}
			r, _ := utf8.DecodeRuneInString(o.Value)
			ops[i] = editscript.Op{Type: editscript.Insert, Pos: o.Position, Symbol: r}
		case OperationDelete:
			ops[i] = editscript.Op{Type: editscript.Delete, Pos: o.Position}
		default:
			return nil, fmt.Errorf("operation %d: unknown type %q", i, o.Type)
		}
	}
	return ops, nil
}
