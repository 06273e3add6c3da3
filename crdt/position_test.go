package crdt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		description string
		a, b        Position
		expected    int
	}{
		{description: "equal", a: Position{4, 52}, b: Position{4, 52}, expected: 0},
		{description: "siblings", a: Position{4, 52}, b: Position{4, 62}, expected: -1},
		{description: "parent before child", a: Position{8, 93}, b: Position{8, 93, 0}, expected: -1},
		{description: "child after parent", a: Position{8, 93, 10}, b: Position{8, 93}, expected: 1},
		{description: "deep left subtree before right sibling", a: Position{3, 127, 127}, b: Position{4}, expected: -1},
		{description: "head before everything", a: Head(), b: Position{0, 1}, expected: -1},
		{description: "tail after everything", a: Tail(128), b: Position{127, 127}, expected: 1},
	}

	for _, tc := range tests {
		got := Compare(tc.a, tc.b)
		if got != tc.expected {
			t.Errorf("(%s) got = %v, expected = %v\n", tc.description, got, tc.expected)
		}
		if back := Compare(tc.b, tc.a); back != -tc.expected {
			t.Errorf("(%s) reversed got = %v, expected = %v\n", tc.description, back, -tc.expected)
		}
	}
}

func TestPositionKey(t *testing.T) {
	tests := []struct {
		pos Position
		key string
	}{
		{pos: Position{0}, key: "0"},
		{pos: Position{4, 52}, key: "4,52"},
		{pos: Position{8, 93, 10}, key: "8,93,10"},
	}

	for _, tc := range tests {
		if got := tc.pos.Key(); got != tc.key {
			t.Errorf("got = %q, expected = %q\n", got, tc.key)
		}

		parsed, err := ParsePosition(tc.key)
		if err != nil {
			t.Fatalf("ParsePosition(%q): %v", tc.key, err)
		}
		if !cmp.Equal(parsed, tc.pos) {
			t.Errorf("got != expected, diff: %v\n", cmp.Diff(parsed, tc.pos))
		}
	}
}

func TestParsePositionInvalid(t *testing.T) {
	for _, key := range []string{"", "a", "1,,2", "1,-3", "1.5"} {
		if _, err := ParsePosition(key); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("ParsePosition(%q) err = %v, expected ErrInvalidPosition", key, err)
		}
	}
}

func TestPositionClone(t *testing.T) {
	p := Position{1, 2}
	q := p.Clone()
	q[0] = 9

	if p[0] != 1 {
		t.Errorf("clone shares memory with original: %v", p)
	}
}
