package crdt

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// InsertEntry is one stored character of a snapshot.
type InsertEntry struct {
	Key    string
	Symbol rune
}

// Snapshot is the full replicable state of a document: every stored character, live or not,
// and every tombstone.
//
// On the wire it is the two-element JSON array
//
//	[[["1","h"],["1,5","i"]],["1"]]
//
// holding (position key, symbol) pairs followed by tombstoned position keys.
type Snapshot struct {
	Inserts []InsertEntry
	Deletes []string
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	inserts := make([][2]string, len(s.Inserts))
	for i, e := range s.Inserts {
		inserts[i] = [2]string{e.Key, string(e.Symbol)}
	}

	deletes := s.Deletes
	if deletes == nil {
		deletes = []string{}
	}

	return json.Marshal([2]any{inserts, deletes})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("%w: expected 2 elements, got %d", ErrDecode, len(parts))
	}

	var pairs [][]string
	if err := json.Unmarshal(parts[0], &pairs); err != nil {
		return fmt.Errorf("%w: inserts: %v", ErrDecode, err)
	}
	var deletes []string
	if err := json.Unmarshal(parts[1], &deletes); err != nil {
		return fmt.Errorf("%w: deletes: %v", ErrDecode, err)
	}

	inserts := make([]InsertEntry, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("%w: insert %d has %d fields", ErrDecode, i, len(pair))
		}
		if utf8.RuneCountInString(pair[1]) != 1 {
			return fmt.Errorf("%w: insert %d symbol %q is not a single character", ErrDecode, i, pair[1])
		}
		symbol, _ := utf8.DecodeRuneInString(pair[1])
		inserts[i] = InsertEntry{Key: pair[0], Symbol: symbol}
	}

	s.Inserts, s.Deletes = inserts, deletes
	return nil
}

// Snapshot returns the state of the document in position order.
func (doc *Document) Snapshot() Snapshot {
	entries := make([]entry, 0, len(doc.inserts))
	for _, e := range doc.inserts {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b entry) int { return Compare(a.pos, b.pos) })

	s := Snapshot{
		Inserts: make([]InsertEntry, len(entries)),
		Deletes: []string{},
	}
	for i, e := range entries {
		s.Inserts[i] = InsertEntry{Key: e.pos.Key(), Symbol: e.symbol}
		if doc.deletes.Contains(e.pos.Key()) {
			s.Deletes = append(s.Deletes, e.pos.Key())
		}
	}

	return s
}

// SerializeState encodes the document state for another replica.
func (doc *Document) SerializeState() ([]byte, error) {
	return json.Marshal(doc.Snapshot())
}

// MergeWithSerializedState decodes a state produced by SerializeState and merges it.
// A malformed state fails with ErrDecode and leaves the document untouched.
func (doc *Document) MergeWithSerializedState(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		if !errors.Is(err, ErrDecode) {
			err = fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return err
	}

	return doc.Merge(s)
}

// Merge unions a snapshot into the document.
//
// Tombstones are a set union, so merging is commutative, associative and idempotent for
// deletions. Stored characters are keyed by position: with MergeOverwrite the incoming symbol
// wins on a collision, with MergeReject a collision with a different symbol aborts the merge.
// Collisions cannot happen while every position is allocated by exactly one replica.
//
// The snapshot is validated completely before the document changes.
func (doc *Document) Merge(s Snapshot) error {
	inserts := make([]entry, len(s.Inserts))
	keys := make(map[string]struct{}, len(s.Inserts))
	for i, e := range s.Inserts {
		p, err := doc.parseKey(e.Key)
		if err != nil {
			return err
		}
		if !utf8.ValidRune(e.Symbol) {
			return fmt.Errorf("%w: %v holds %U", ErrDecode, p, e.Symbol)
		}
		inserts[i] = entry{pos: p, symbol: e.Symbol}
		keys[p.Key()] = struct{}{}
	}

	deletes := make([]Position, len(s.Deletes))
	for i, key := range s.Deletes {
		p, err := doc.parseKey(key)
		if err != nil {
			return err
		}
		if _, ok := keys[p.Key()]; !ok {
			return fmt.Errorf("%w: tombstone %v has no stored character", ErrDecode, p)
		}
		deletes[i] = p
	}

	var conflicts []string
	for _, e := range inserts {
		if local, ok := doc.inserts[e.pos.Key()]; ok && local.symbol != e.symbol {
			conflicts = append(conflicts, e.pos.String())
		}
	}
	if len(conflicts) > 0 && doc.cfg.MergePolicy == MergeReject {
		return fmt.Errorf("%w: %s", ErrPositionConflict, strings.Join(conflicts, " "))
	}

	for _, e := range inserts {
		doc.applyInsert(e.pos, e.symbol)
	}
	for _, p := range deletes {
		doc.applyRemove(p)
	}

	doc.logger.WithFields(logrus.Fields{
		"inserts":    len(inserts),
		"tombstones": len(deletes),
		"overwrites": len(conflicts),
	}).Debug("merged snapshot")

	return nil
}

// parseKey parses a position key received from another replica. Components must lie in
// [0, Arity) and the last one must be non-zero, as the allocator never produces anything else.
func (doc *Document) parseKey(key string) (Position, error) {
	p, err := ParsePosition(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	for _, c := range p {
		if c >= doc.cfg.Arity {
			return nil, fmt.Errorf("%w: %v exceeds arity %d", ErrDecode, p, doc.cfg.Arity)
		}
	}
	if p[len(p)-1] == 0 {
		return nil, fmt.Errorf("%w: %v ends in a zero component", ErrDecode, p)
	}

	return p, nil
}
