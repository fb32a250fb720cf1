package seqre

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// MaxLoopUnroll is the largest loop bound the compiler unrolls. Loops with
// larger bounds are not supported.
const MaxLoopUnroll = 1000

// RegexCompiler translates regex expressions into symbolic automata.
type RegexCompiler struct {
	arena *Arena
	ba    *BooleanAlgebra
	ctx   context.Context
}

// NewRegexCompiler returns a compiler over the arena. Complement and
// intersection are only supported if ba has a solver.
func NewRegexCompiler(a *Arena, ba *BooleanAlgebra) *RegexCompiler {
	return &RegexCompiler{arena: a, ba: ba, ctx: context.Background()}
}

// WithContext returns a copy of the compiler that stops product
// constructions when ctx is done.
func (rc *RegexCompiler) WithContext(ctx context.Context) *RegexCompiler {
	other := *rc
	other.ctx = ctx
	return &other
}

// Compile returns an epsilon-free automaton accepting the language of r.
// Returns ErrNotSupported if r contains a construct without a translation.
func (rc *RegexCompiler) Compile(r *Expr) (*Automaton, error) {
	assert(r.Sort().IsRe(), "compile: non-regex sort: %s", r.Sort())
	aut, err := rc.compile(r)
	if err != nil {
		log.WithError(err).WithField("re", r).Debug("regex not compiled")
		return nil, err
	}
	return aut.Compress(), nil
}

func (rc *RegexCompiler) compile(r *Expr) (*Automaton, error) {
	if err := rc.ctx.Err(); err != nil {
		return nil, ErrCanceled
	}

	switch r.Op() {
	case OpToRe:
		return rc.compileSeq(r.Arg(0))

	case OpReConcat, OpReUnion:
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}
		b, err := rc.compile(r.Arg(1))
		if err != nil {
			return nil, err
		}
		if r.Op() == OpReConcat {
			return ConcatAutomaton(a, b), nil
		}
		return UnionAutomaton(a, b), nil

	case OpReStar:
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}
		return StarAutomaton(a), nil

	case OpRePlus:
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}
		return PlusAutomaton(a), nil

	case OpReOpt:
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}
		return OptAutomaton(a), nil

	case OpReRange:
		lo, ok1 := rc.unitChar(r.Arg(0))
		hi, ok2 := rc.unitChar(r.Arg(1))
		if !ok1 || !ok2 {
			// A range whose bounds are not single characters is empty.
			return EmptyAutomaton(), nil
		}
		return NewSymAutomaton(NewSymRange(lo, hi)), nil

	case OpReComplement:
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		} else if !rc.ba.HasSolver() {
			return nil, ErrNotSupported
		}
		return ComplementAutomaton(rc.ctx, rc.ba, a)

	case OpReInter, OpReDiff:
		if !rc.ba.HasSolver() {
			return nil, ErrNotSupported
		}
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}
		b, err := rc.compile(r.Arg(1))
		if err != nil {
			return nil, err
		}
		if r.Op() == OpReDiff {
			if b, err = ComplementAutomaton(rc.ctx, rc.ba, b); err != nil {
				return nil, err
			}
		}
		return ProductAutomaton(rc.ctx, rc.ba, a, b)

	case OpReLoop, OpRePower:
		lo, hi, bounded, ok := loopBounds(r)
		if !ok {
			return nil, ErrNotSupported
		} else if bounded && lo > hi {
			return EmptyAutomaton(), nil
		} else if lo > MaxLoopUnroll || (bounded && hi > MaxLoopUnroll) {
			return nil, fmt.Errorf("%w: loop bound exceeds %d", ErrNotSupported, MaxLoopUnroll)
		}
		a, err := rc.compile(r.Arg(0))
		if err != nil {
			return nil, err
		}

		b := EpsilonAutomaton()
		if !bounded {
			b = StarAutomaton(a)
		}
		for eps := EpsilonAutomaton(); bounded && hi > lo; hi-- {
			if rc.ctx.Err() != nil {
				return nil, ErrCanceled
			}
			b = UnionAutomaton(eps, ConcatAutomaton(a, b))
		}
		for ; lo > 0; lo-- {
			if rc.ctx.Err() != nil {
				return nil, ErrCanceled
			}
			b = ConcatAutomaton(a, b)
		}
		return b, nil

	case OpReEmpty:
		return EmptyAutomaton(), nil

	case OpReFull:
		return NewLoopAutomaton(rc.ba.True()), nil

	case OpReAllChar:
		return NewSymAutomaton(rc.ba.True()), nil

	case OpReOfPred:
		return NewSymAutomaton(NewSymPred(r.Arg(0))), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, r.Op())
	}
}

// compileSeq returns an automaton accepting only the sequence s.
func (rc *RegexCompiler) compileSeq(s *Expr) (*Automaton, error) {
	var auts []*Automaton
	for _, e := range flattenConcat(s) {
		switch {
		case e.Op() == OpUnit:
			auts = append(auts, NewSymAutomaton(NewSymChar(e.Arg(0))))
		case e.IsEmptySeq():
			auts = append(auts, EpsilonAutomaton())
		case e.Op() == OpString:
			runes, _ := e.StringValue()
			preds := make([]*SymExpr, len(runes))
			for i, c := range runes {
				preds[i] = NewSymChar(rc.arena.Char(c))
			}
			auts = append(auts, NewChainAutomaton(preds))
		default:
			return nil, fmt.Errorf("%w: symbolic sequence %s", ErrNotSupported, e)
		}
	}

	aut := EpsilonAutomaton()
	if len(auts) > 0 {
		aut = auts[len(auts)-1]
		for i := len(auts) - 2; i >= 0; i-- {
			aut = ConcatAutomaton(auts[i], aut)
		}
	}
	return aut, nil
}

// unitChar returns the character of a single character literal or unit.
func (rc *RegexCompiler) unitChar(e *Expr) (*Expr, bool) {
	if s, ok := e.StringValue(); ok && len(s) == 1 {
		return rc.arena.Char(s[0]), true
	} else if e.Op() == OpUnit {
		return e.Arg(0), true
	}
	return nil, false
}

// loopBounds returns the bounds of a loop or power. ok is false if the
// bounds are non-constant terms.
func loopBounds(r *Expr) (lo, hi int, bounded, ok bool) {
	params := r.Params()
	switch {
	case r.Op() == OpRePower:
		return params[0], params[0], true, true
	case len(params) == 1:
		return params[0], 0, false, true
	case len(params) == 2:
		return params[0], params[1], true, true
	}

	l, ok := r.Arg(1).IntValue()
	if !ok || l < 0 {
		return 0, 0, false, false
	} else if r.NumArgs() == 2 {
		return int(l), 0, false, true
	}
	h, ok := r.Arg(2).IntValue()
	if !ok || h < 0 {
		return 0, 0, false, false
	}
	return int(l), int(h), true, true
}
