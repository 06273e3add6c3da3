package crdt

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Strategy selects how the allocator places a new position between two bounds.
type Strategy int

const (
	// StrategyLeft allocates close to the left bound, leaving room for text typed after it.
	StrategyLeft Strategy = iota

	// StrategyRight allocates close to the right bound. Not implemented.
	StrategyRight
)

func (s Strategy) String() string {
	switch s {
	case StrategyLeft:
		return "left"
	case StrategyRight:
		return "right"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "left" or "right".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "left":
		return StrategyLeft, nil
	case "right":
		return StrategyRight, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
	}
}

// MergePolicy decides what a merge does when both sides hold a different symbol at the same position.
type MergePolicy int

const (
	// MergeOverwrite lets the incoming snapshot win. Correct only while every position is allocated
	// by exactly one replica.
	MergeOverwrite MergePolicy = iota

	// MergeReject refuses the whole snapshot and reports the colliding positions.
	MergeReject
)

func (m MergePolicy) String() string {
	switch m {
	case MergeOverwrite:
		return "overwrite"
	case MergeReject:
		return "reject"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(m))
	}
}

// ParseMergePolicy parses "overwrite" or "reject".
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch s {
	case "", "overwrite":
		return MergeOverwrite, nil
	case "reject":
		return MergeReject, nil
	default:
		return 0, fmt.Errorf("unknown merge policy %q", s)
	}
}

const (
	DefaultArity     = 128
	DefaultLookahead = 16
	DefaultLargeLine = 128
	DefaultMaxDepth  = 512
)

// Config holds the tunables of a Document. Zero fields take their defaults.
type Config struct {
	// Arity is the number of children of every node in the position tree.
	Arity int

	// Lookahead is how many sibling slots the allocator scans before descending a level.
	Lookahead int

	// LargeLine is the size below which Collapse reallocates every position from scratch.
	LargeLine int

	// MaxDepth bounds the length of allocated positions.
	MaxDepth int

	Strategy    Strategy
	MergePolicy MergePolicy

	// Logger receives debug entries. Defaults to a logger that discards everything.
	Logger *logrus.Logger
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Arity <= 0 {
		c.Arity = DefaultArity
	}
	if c.Lookahead <= 0 {
		c.Lookahead = DefaultLookahead
	}
	if c.LargeLine <= 0 {
		c.LargeLine = DefaultLargeLine
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = discardLogger
	}
	return c
}

var discardLogger = func() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}()
