package crdt

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Allocate returns a position strictly between begin and end that has never been stored in
// the document, live or tombstoned.
func (doc *Document) Allocate(begin, end Position, strategy Strategy) (Position, error) {
	if len(begin) == 0 || len(end) == 0 {
		return nil, fmt.Errorf("%w: empty bound", ErrInvalidPosition)
	}
	if Compare(begin, end) >= 0 {
		return nil, fmt.Errorf("%w: %v is not before %v", ErrInvalidPosition, begin, end)
	}

	switch strategy {
	case StrategyLeft:
		return doc.allocateLeft(begin, end)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStrategy, strategy)
	}
}

// allocateLeft scans up to Lookahead siblings to the right of begin and takes the first free one.
// When the window is taken, or runs into end or the arity bound, it descends under begin and
// scans again. A fresh level has no occupants, so the search ends as soon as it is deep enough.
//
//	begin = [4 52], end = [5]     -> [4 53]
//	begin = [8 127], end = [9]    -> [8 127 1]
func (doc *Document) allocateLeft(begin, end Position) (Position, error) {
	base := begin.Clone()

	for len(base) <= doc.cfg.MaxDepth {
		last := base[len(base)-1]

		for step := 1; step <= doc.cfg.Lookahead; step++ {
			if last+step >= doc.cfg.Arity {
				break
			}

			candidate := base.withLast(last + step)
			if Compare(candidate, end) >= 0 {
				break
			}
			if !doc.used(candidate) {
				return candidate, nil
			}
		}

		doc.logger.WithFields(logrus.Fields{
			"begin": begin.String(),
			"end":   end.String(),
			"depth": len(base) + 1,
		}).Debug("allocation window exhausted, descending")

		base = base.child(0)
	}

	return nil, fmt.Errorf("%w: %v and %v within depth %d", ErrAllocationExhausted, begin, end, doc.cfg.MaxDepth)
}
