// Package seqre implements a canonicalization engine for terms over
// sequences, strings and regular expressions.
//
// Terms are interned in an Arena. A Rewriter simplifies one operator
// application at a time and reports whether it applied a rule, and a
// Simplifier drives the Rewriter bottom-up to a fixpoint.
package seqre

import (
	"errors"
	"fmt"
)

// MaxChar is the largest character value.
const MaxChar = 0x2FFFF

// DefaultMaxCacheSize is the number of memoized results kept before the
// operation cache is reset.
const DefaultMaxCacheSize = 10000

// DefaultMaxSteps is the number of successful rewrites a Simplifier
// performs before returning the current term.
const DefaultMaxSteps = 10000

var (
	ErrNotSupported  = errors.New("construct not supported")
	ErrCanceled      = errors.New("computation canceled")
	ErrUnboundVar    = errors.New("variable not bound")
	ErrSolverUnknown = errors.New("solver unknown result")
)

// Truth is the result of a three-valued query.
type Truth int

const (
	TruthUnknown Truth = iota
	TruthTrue
	TruthFalse
)

var truths = [...]string{
	TruthUnknown: "unknown",
	TruthTrue:    "true",
	TruthFalse:   "false",
}

// String returns the string representation of t.
func (t Truth) String() string {
	if t >= 0 && int(t) < len(truths) {
		return truths[t]
	}
	return fmt.Sprintf("Truth<%d>", t)
}

// Not returns the negation of t. Unknown stays unknown.
func (t Truth) Not() Truth {
	switch t {
	case TruthTrue:
		return TruthFalse
	case TruthFalse:
		return TruthTrue
	default:
		return TruthUnknown
	}
}

// Config holds the options read when a Rewriter is created.
type Config struct {
	// Merge adjacent character literals into string literals.
	CoalesceChars bool

	// Number of memoized results kept before the cache is reset.
	MaxCacheSize int

	// Number of successful rewrites performed by each Simplifier call.
	MaxSteps int

	// Enables the rewrite of membership in all ++ s1 ++ all ++ ... ++ all
	// patterns into containment constraints.
	ContainsPatternRewrite bool

	// Enables lifting of shallow if-then-else arguments at every operator
	// application, and the ordering rules for regex if-then-else terms.
	ThrottledITELifting bool
}

// DefaultConfig returns the default rewriter configuration.
func DefaultConfig() Config {
	return Config{
		CoalesceChars: true,
		MaxCacheSize:  DefaultMaxCacheSize,
		MaxSteps:      DefaultMaxSteps,
	}
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
