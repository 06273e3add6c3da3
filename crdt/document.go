package crdt

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/burntcarrot/treepad/editscript"
)

// Document is a replicated plain-text document.
//
// Every character is stored under a unique Position. Deleting a character only adds its
// position to the tombstone set, so inserts and deletes from different replicas can be
// merged in any order. A Document is owned by one replica and is not safe for concurrent use.
type Document struct {
	cfg Config

	// inserts maps a position key to the character stored there, tombstoned or not.
	inserts map[string]entry

	// deletes holds the keys of tombstoned positions. Always a subset of the inserts keys.
	deletes mapset.Set[string]

	// live is the sorted list of positions in inserts but not in deletes.
	live []Position

	logger *logrus.Logger
}

type entry struct {
	pos    Position
	symbol rune
}

// New returns an empty document with the default configuration.
func New() *Document {
	return NewWithConfig(Config{})
}

// NewWithConfig returns an empty document. Zero fields of cfg take their defaults.
func NewWithConfig(cfg Config) *Document {
	cfg = cfg.withDefaults()

	return &Document{
		cfg:     cfg,
		inserts: make(map[string]entry),
		deletes: mapset.NewThreadUnsafeSet[string](),
		logger:  cfg.Logger,
	}
}

// Config returns the effective configuration of the document.
func (doc *Document) Config() Config {
	return doc.cfg
}

// Len returns the number of live characters.
func (doc *Document) Len() int {
	return len(doc.live)
}

// Content returns the live characters in position order.
func (doc *Document) Content() string {
	var sb strings.Builder
	for _, p := range doc.live {
		sb.WriteRune(doc.inserts[p.Key()].symbol)
	}
	return sb.String()
}

// Positions returns the sorted live positions.
func (doc *Document) Positions() []Position {
	positions := make([]Position, len(doc.live))
	for i, p := range doc.live {
		positions[i] = p.Clone()
	}
	return positions
}

// Stats returns the number of stored positions and how many of them are tombstones.
func (doc *Document) Stats() (positions, tombstones int) {
	return len(doc.inserts), doc.deletes.Cardinality()
}

// PositionAtIndex returns the position of the index-th live character.
// Index -1 returns Head and index Len() returns Tail.
func (doc *Document) PositionAtIndex(index int) (Position, error) {
	switch {
	case index == -1:
		return Head(), nil
	case index == len(doc.live):
		return Tail(doc.cfg.Arity), nil
	case index < -1 || index > len(doc.live):
		return nil, fmt.Errorf("%w: %d not in [-1, %d]", ErrIndexOutOfRange, index, len(doc.live))
	default:
		return doc.live[index].Clone(), nil
	}
}

// IndexAtPosition returns the index of a live position, -1 for Head and Len() for Tail.
// The second result is false if p is neither live nor a sentinel.
func (doc *Document) IndexAtPosition(p Position) (int, bool) {
	if p.Equal(Head()) {
		return -1, true
	}
	if p.Equal(Tail(doc.cfg.Arity)) {
		return len(doc.live), true
	}

	return slices.BinarySearchFunc(doc.live, p, Compare)
}

// InsertAfter inserts symbol after the index-th live character.
// Index -1 inserts at the start; Len()-1 appends.
func (doc *Document) InsertAfter(index int, symbol rune) error {
	if !utf8.ValidRune(symbol) {
		return fmt.Errorf("%w: %U", ErrInvalidSymbol, symbol)
	}

	p, err := doc.PositionAtIndex(index)
	if err != nil {
		return err
	}
	q, err := doc.PositionAtIndex(index + 1)
	if err != nil {
		return err
	}

	z, err := doc.Allocate(p, q, doc.cfg.Strategy)
	if err != nil {
		return fmt.Errorf("insert after %d: %w", index, err)
	}

	doc.applyInsert(z, symbol)
	return nil
}

// Remove tombstones the index-th live character.
func (doc *Document) Remove(index int) error {
	if index < 0 || index >= len(doc.live) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(doc.live))
	}

	doc.applyRemove(doc.live[index])
	return nil
}

// Replace swaps the index-th live character for symbol.
//
// It is a Remove followed by an InsertAfter(index-1), which puts the new symbol in the vacated
// slot. The new position is allocated before anything changes, so a failed Replace leaves the
// document untouched.
func (doc *Document) Replace(index int, symbol rune) error {
	if index < 0 || index >= len(doc.live) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(doc.live))
	}
	if !utf8.ValidRune(symbol) {
		return fmt.Errorf("%w: %U", ErrInvalidSymbol, symbol)
	}

	// Bounds as seen once the index-th character is gone.
	begin := Head()
	if index > 0 {
		begin = doc.live[index-1]
	}
	end := Tail(doc.cfg.Arity)
	if index+1 < len(doc.live) {
		end = doc.live[index+1]
	}

	z, err := doc.Allocate(begin, end, doc.cfg.Strategy)
	if err != nil {
		return fmt.Errorf("replace %d: %w", index, err)
	}

	doc.applyRemove(doc.live[index])
	doc.applyInsert(z, symbol)
	return nil
}

// SetContent edits the document until its content equals text, using a minimal edit script.
func (doc *Document) SetContent(text string) error {
	return Patch(doc, editscript.EditList(doc.Content(), text))
}

// Collapse drops every tombstone and, for documents shorter than LargeLine, reallocates all
// positions from scratch to keep them shallow. A failed Collapse leaves the document untouched.
//
// Collapse discards position identities. Edits from other replicas that were made against the
// old positions merge incorrectly afterwards, so only collapse when no remote state is pending.
func (doc *Document) Collapse() error {
	before, tombstones := doc.Stats()

	if len(doc.live) < doc.cfg.LargeLine {
		fresh := NewWithConfig(doc.cfg)
		for i, symbol := range []rune(doc.Content()) {
			if err := fresh.InsertAfter(i-1, symbol); err != nil {
				return fmt.Errorf("collapse: %w", err)
			}
		}
		doc.inserts, doc.deletes, doc.live = fresh.inserts, fresh.deletes, fresh.live
	} else {
		for _, key := range doc.deletes.ToSlice() {
			delete(doc.inserts, key)
		}
		doc.deletes.Clear()
	}

	doc.logger.WithFields(logrus.Fields{
		"before":     before,
		"tombstones": tombstones,
		"after":      len(doc.inserts),
	}).Debug("collapsed document")

	return nil
}

// used reports whether p was ever stored, live or tombstoned.
func (doc *Document) used(p Position) bool {
	key := p.Key()
	if _, ok := doc.inserts[key]; ok {
		return true
	}
	return doc.deletes.Contains(key)
}

func (doc *Document) applyInsert(p Position, symbol rune) {
	key := p.Key()

	_, existed := doc.inserts[key]
	doc.inserts[key] = entry{pos: p, symbol: symbol}

	if existed || doc.deletes.Contains(key) {
		return
	}

	i, _ := slices.BinarySearchFunc(doc.live, p, Compare)
	doc.live = slices.Insert(doc.live, i, p)
}

func (doc *Document) applyRemove(p Position) {
	key := p.Key()
	if doc.deletes.Contains(key) {
		return
	}
	doc.deletes.Add(key)

	if i, ok := slices.BinarySearchFunc(doc.live, p, Compare); ok {
		doc.live = slices.Delete(doc.live, i, i+1)
	}
}
