package seqre

import (
	log "github.com/sirupsen/logrus"
)

// Simplifier rewrites terms bottom-up to a fixpoint of the Rewriter.
// Results are memoized across calls. Terms visited after the step limit is
// reached or the context is done are not memoized.
type Simplifier struct {
	rw    *Rewriter
	memo  map[*Expr]*Expr
	steps int
}

// NewSimplifier returns a simplifier driving rw.
func NewSimplifier(rw *Rewriter) *Simplifier {
	return &Simplifier{rw: rw, memo: make(map[*Expr]*Expr)}
}

// Simplify returns the simplified form of e. After Config.MaxSteps successful
// rewrite steps the current term is returned as is. Returns ErrCanceled if the
// context of the rewriter is done.
func (s *Simplifier) Simplify(e *Expr) (*Expr, error) {
	s.steps = 0
	result := s.simplify(e)
	if s.rw.ctx.Err() != nil {
		return nil, ErrCanceled
	}
	if s.steps >= s.maxSteps() {
		log.WithField("expr", e).Debug("simplify: step limit reached")
	}
	return result, nil
}

func (s *Simplifier) maxSteps() int {
	if n := s.rw.config.MaxSteps; n > 0 {
		return n
	}
	return DefaultMaxSteps
}

func (s *Simplifier) simplify(e *Expr) *Expr {
	if other, ok := s.memo[e]; ok {
		return other
	}

	result := e
	if len(e.args) > 0 {
		args := make([]*Expr, len(e.args))
		for i, arg := range e.args {
			args[i] = s.simplify(arg)
		}
		result = s.rw.arena.Rebuild(e, args)
	}

	if s.steps < s.maxSteps() {
		switch st, other := s.rw.Rewrite(result); st {
		case StatusFailed:
		case StatusDone:
			s.steps++
			result = other
		default:
			s.steps++
			result = s.simplify(other)
		}
	}

	if s.steps < s.maxSteps() && s.rw.ctx.Err() == nil {
		s.memo[e] = result
	}
	return result
}
