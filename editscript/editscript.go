// Package editscript computes minimal character-level edit scripts between two strings.
package editscript

import (
	"errors"
	"fmt"
	"slices"
)

// OpType represents the kind of an edit.
type OpType string

const (
	Insert OpType = "I"
	Delete OpType = "D"
)

var ErrOutOfBounds = errors.New("edit position out of bounds")

// Op is a single edit.
// For an Insert, Pos is the index in the target string that Symbol ends up at.
// For a Delete, Pos is the index of the removed character in the source string.
type Op struct {
	Type   OpType `json:"type"`
	Pos    int    `json:"pos"`
	Symbol rune   `json:"symbol,omitempty"`
}

func (op Op) String() string {
	if op.Type == Insert {
		return fmt.Sprintf("%s(%d,%q)", op.Type, op.Pos, op.Symbol)
	}
	return fmt.Sprintf("%s(%d)", op.Type, op.Pos)
}

// EditList returns the shortest list of single-character inserts and deletes turning left into right.
//
// Deletes come first, ordered by descending position, followed by inserts in ascending position.
// Replaying the list in that order against left never invalidates a later index.
func EditList(left, right string) []Op {
	a, b := []rune(left), []rune(right)

	l, r := crop(a, b)
	ops := editListCore(a[l:len(a)-r], b[l:len(b)-r])

	// Restore offsets relative to the uncropped strings.
	for i := range ops {
		ops[i].Pos += l
	}

	return ops
}

// crop returns the length of the common prefix and the common suffix of a and b.
// The scan grows the prefix and the suffix in turns and never lets the two overlap.
func crop(a, b []rune) (int, int) {
	l, r := 0, 0

	for i := 0; ; i++ {
		if l >= min(len(a), len(b))-r {
			break
		}
		if a[l] != b[l] && a[len(a)-r-1] != b[len(b)-r-1] {
			break
		}

		if i%2 == 0 && a[l] == b[l] {
			l++
		}
		if i%2 == 1 && a[len(a)-r-1] == b[len(b)-r-1] {
			r++
		}
	}

	return l, r
}

type move uint8

const (
	moveNone move = iota
	moveDelete
	moveInsert
	moveMatch
)

// editListCore runs the edit distance table over a and b and walks it back into a sorted script.
func editListCore(a, b []rune) []Op {
	n, m := len(a), len(b)
	width := m + 1

	dist := make([]int, (n+1)*width)
	moves := make([]move, (n+1)*width)

	for i := 1; i <= n; i++ {
		dist[i*width] = i
		moves[i*width] = moveDelete
	}
	for j := 1; j <= m; j++ {
		dist[j] = j
		moves[j] = moveInsert
	}

	// On equal cost the first candidate wins: delete, then insert, then match.
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			best := dist[(i-1)*width+j] + 1
			mv := moveDelete

			if c := dist[i*width+j-1] + 1; c < best {
				best, mv = c, moveInsert
			}
			if a[i-1] == b[j-1] {
				if c := dist[(i-1)*width+j-1]; c < best {
					best, mv = c, moveMatch
				}
			}

			dist[i*width+j] = best
			moves[i*width+j] = mv
		}
	}

	var ops []Op
	i, j := n, m
	for i != 0 || j != 0 {
		switch moves[i*width+j] {
		case moveDelete:
			ops = append(ops, Op{Type: Delete, Pos: i - 1})
			i--
		case moveInsert:
			ops = append(ops, Op{Type: Insert, Pos: j - 1, Symbol: b[j-1]})
			j--
		case moveMatch:
			i--
			j--
		}
	}

	slices.Reverse(ops)
	slices.SortStableFunc(ops, compareOps)

	return ops
}

// compareOps orders deletes before inserts, deletes high to low and inserts low to high.
func compareOps(x, y Op) int {
	switch {
	case x.Type == Delete && y.Type == Insert:
		return -1
	case x.Type == Insert && y.Type == Delete:
		return 1
	case x.Type == Insert:
		return x.Pos - y.Pos
	default:
		return y.Pos - x.Pos
	}
}

// Apply replays ops against s in the given order.
func Apply(s string, ops []Op) (string, error) {
	text := []rune(s)

	for _, op := range ops {
		switch op.Type {
		case Delete:
			if op.Pos < 0 || op.Pos >= len(text) {
				return "", fmt.Errorf("%w: %s on %d characters", ErrOutOfBounds, op, len(text))
			}
			text = slices.Delete(text, op.Pos, op.Pos+1)
		case Insert:
			if op.Pos < 0 || op.Pos > len(text) {
				return "", fmt.Errorf("%w: %s on %d characters", ErrOutOfBounds, op, len(text))
			}
			text = slices.Insert(text, op.Pos, op.Symbol)
		default:
			return "", fmt.Errorf("unknown edit type %q", op.Type)
		}
	}

	return string(text), nil
}
