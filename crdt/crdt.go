package crdt

import (
	"fmt"

	"github.com/burntcarrot/treepad/editscript"
)

// Editor is the index-addressed editing surface of a replica.
type Editor interface {
	InsertAfter(index int, symbol rune) error
	Remove(index int) error
	Content() string
}

// Patch replays an edit script, as returned by editscript.EditList, onto e.
// It stops at the first failing edit; edits before it stay applied.
func Patch(e Editor, ops []editscript.Op) error {
	for i, op := range ops {
		var err error

		switch op.Type {
		case editscript.Delete:
			err = e.Remove(op.Pos)
		case editscript.Insert:
			err = e.InsertAfter(op.Pos-1, op.Symbol)
		default:
			err = fmt.Errorf("unknown edit type %q", op.Type)
		}

		if err != nil {
			return fmt.Errorf("edit %d %v: %w", i, op, err)
		}
	}

	return nil
}
