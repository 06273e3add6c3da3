package crdt

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a path from the root of the position tree to a node.
// Each component is a child index in [0, Arity).
//
// Positions are ordered component-wise, with a missing component counting as -1,
// so a node sorts right before all of its descendants.
type Position []int

// Head returns the sentinel position that precedes the first character.
func Head() Position {
	return Position{0}
}

// Tail returns the sentinel position that follows the last character for the given arity.
func Tail(arity int) Position {
	return Position{arity}
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to, or after b.
func Compare(a, b Position) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		l, r := -1, -1
		if i < len(a) {
			l = a[i]
		}
		if i < len(b) {
			r = b[i]
		}

		if l < r {
			return -1
		}
		if l > r {
			return 1
		}
	}

	return 0
}

// Less reports whether p sorts before q.
func (p Position) Less(q Position) bool {
	return Compare(p, q) < 0
}

// Equal reports whether p and q address the same node.
func (p Position) Equal(q Position) bool {
	return Compare(p, q) == 0
}

// Key returns the canonical comma-joined form of the position, e.g. "4,52".
func (p Position) Key() string {
	var sb strings.Builder
	for i, c := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}

func (p Position) String() string {
	return "[" + p.Key() + "]"
}

// Clone returns a copy of p that shares no memory with it.
func (p Position) Clone() Position {
	return append(Position(nil), p...)
}

// withLast returns a copy of p with its deepest component replaced by v.
func (p Position) withLast(v int) Position {
	q := p.Clone()
	q[len(q)-1] = v
	return q
}

// child returns a copy of p extended by one level.
func (p Position) child(v int) Position {
	return append(p.Clone(), v)
}

// ParsePosition parses the canonical key form produced by Position.Key.
func ParsePosition(key string) (Position, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPosition)
	}

	parts := strings.Split(key, ",")
	p := make(Position, len(parts))
	for i, part := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPosition, key, err)
		}
		if c < 0 {
			return nil, fmt.Errorf("%w: %q has a negative component", ErrInvalidPosition, key)
		}
		p[i] = c
	}

	return p, nil
}
