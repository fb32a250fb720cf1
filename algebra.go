package seqre

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Solver decides the satisfiability of a boolean expression with at most
// one free variable.
type Solver interface {
	CheckSat(fml *Expr) (Truth, error)
}

// SymKind represents the kind of a symbolic predicate.
type SymKind int

// Symbolic predicate kinds.
const (
	SymChar SymKind = iota + 1
	SymRange
	SymNot
	SymPred
)

// SymExpr is a predicate over a single element, used to label automaton moves.
type SymExpr struct {
	Kind SymKind
	Char *Expr    // SymChar
	Lo   *Expr    // SymRange
	Hi   *Expr    // SymRange
	Arg  *SymExpr // SymNot
	Pred *Expr    // SymPred, over the bound variable
}

// NewSymChar returns the predicate accepting the element c.
func NewSymChar(c *Expr) *SymExpr {
	return &SymExpr{Kind: SymChar, Char: c}
}

// NewSymRange returns the predicate accepting characters between lo and hi.
func NewSymRange(lo, hi *Expr) *SymExpr {
	assert(lo.Sort() == SortChar && hi.Sort() == SortChar, "range over non-character sort: %s, %s", lo.Sort(), hi.Sort())
	return &SymExpr{Kind: SymRange, Lo: lo, Hi: hi}
}

// NewSymNot returns the negation of x.
func NewSymNot(x *SymExpr) *SymExpr {
	if x.Kind == SymNot {
		return x.Arg
	}
	return &SymExpr{Kind: SymNot, Arg: x}
}

// NewSymPred returns the predicate p over the bound variable.
func NewSymPred(p *Expr) *SymExpr {
	assert(p.Sort() == SortBool, "predicate of non-boolean sort: %s", p.Sort())
	return &SymExpr{Kind: SymPred, Pred: p}
}

// Accept returns the boolean expression stating that x satisfies the predicate.
func (s *SymExpr) Accept(a *Arena, x *Expr) *Expr {
	switch s.Kind {
	case SymChar:
		return a.Eq(x, s.Char)
	case SymRange:
		return a.And(a.CharLe(s.Lo, x), a.CharLe(x, s.Hi))
	case SymNot:
		return a.Not(s.Arg.Accept(a, x))
	case SymPred:
		return a.Subst(s.Pred, x)
	default:
		panic("unreachable")
	}
}

// IsTrue returns true if s is the constant true predicate.
func (s *SymExpr) IsTrue() bool { return s.Kind == SymPred && s.Pred.IsTrue() }

// IsFalse returns true if s is the constant false predicate.
func (s *SymExpr) IsFalse() bool { return s.Kind == SymPred && s.Pred.IsFalse() }

// sort returns the sort of the element the predicate applies to.
func (s *SymExpr) sort() Sort {
	switch s.Kind {
	case SymChar:
		return s.Char.Sort()
	case SymRange:
		return s.Lo.Sort()
	case SymNot:
		return s.Arg.sort()
	default:
		sort := SortChar
		WalkExpr(visitorFunc(func(e *Expr) bool {
			if e.Op() == OpBoundVar {
				sort = e.Sort()
			}
			return true
		}), s.Pred)
		return sort
	}
}

// String returns the string representation of the predicate.
func (s *SymExpr) String() string {
	switch s.Kind {
	case SymChar:
		return s.Char.String()
	case SymRange:
		return fmt.Sprintf("%s:%s", s.Lo, s.Hi)
	case SymNot:
		return "not " + s.Arg.String()
	case SymPred:
		return s.Pred.String()
	default:
		return fmt.Sprintf("SymExpr<%d>", s.Kind)
	}
}

// BooleanAlgebra implements the algebra of symbolic predicates. Predicates
// that cannot be decided locally are passed to the solver, if any.
type BooleanAlgebra struct {
	arena  *Arena
	solver Solver
	v      *Expr
}

// NewBooleanAlgebra returns a new algebra over the arena. solver may be nil.
func NewBooleanAlgebra(a *Arena, solver Solver) *BooleanAlgebra {
	return &BooleanAlgebra{arena: a, solver: solver}
}

// HasSolver returns true if the algebra can decide arbitrary predicates.
func (ba *BooleanAlgebra) HasSolver() bool { return ba.solver != nil }

// True returns the predicate accepting every element.
func (ba *BooleanAlgebra) True() *SymExpr { return NewSymPred(ba.arena.True()) }

// False returns the predicate accepting no element.
func (ba *BooleanAlgebra) False() *SymExpr { return NewSymPred(ba.arena.False()) }

// And returns the conjunction of x and y.
func (ba *BooleanAlgebra) And(x, y *SymExpr) *SymExpr {
	a := ba.arena
	if x.Kind == SymChar && y.Kind == SymChar {
		if x.Char == y.Char {
			return x
		} else if a.AreEqual(x.Char, y.Char) == TruthFalse {
			return ba.False()
		}
	}

	if x.Kind == SymRange && y.Kind == SymRange {
		lo1, ok1 := x.Lo.CharValue()
		hi1, ok2 := x.Hi.CharValue()
		lo2, ok3 := y.Lo.CharValue()
		hi2, ok4 := y.Hi.CharValue()
		if ok1 && ok2 && ok3 && ok4 {
			lo, hi := max(lo1, lo2), min(hi1, hi2)
			if lo > hi {
				return ba.False()
			}
			return NewSymRange(a.Char(lo), a.Char(hi))
		}
	}

	sort := x.sort()
	if x.Kind == SymPred {
		sort = y.sort()
	}
	v := a.BoundVar(sort)
	fml1, fml2 := x.Accept(a, v), y.Accept(a, v)
	switch {
	case fml1.IsTrue():
		return y
	case fml2.IsTrue():
		return x
	case fml1 == fml2:
		return x
	}
	return NewSymPred(a.And(fml1, fml2))
}

// Or returns the disjunction of x and y.
func (ba *BooleanAlgebra) Or(x, y *SymExpr) *SymExpr {
	a := ba.arena
	if x == y || (x.Kind == SymChar && y.Kind == SymChar && x.Char == y.Char) {
		return x
	}

	sort := x.sort()
	if x.Kind == SymPred {
		sort = y.sort()
	}
	v := a.BoundVar(sort)
	fml1, fml2 := x.Accept(a, v), y.Accept(a, v)
	switch {
	case fml1.IsFalse():
		return y
	case fml2.IsFalse():
		return x
	}
	return NewSymPred(a.Or(fml1, fml2))
}

// Not returns the negation of x.
func (ba *BooleanAlgebra) Not(x *SymExpr) *SymExpr {
	return NewSymNot(x)
}

// IsSat reports whether some element satisfies x.
func (ba *BooleanAlgebra) IsSat(x *SymExpr) Truth {
	switch x.Kind {
	case SymChar:
		return TruthTrue
	case SymRange:
		lo, ok1 := x.Lo.CharValue()
		hi, ok2 := x.Hi.CharValue()
		if ok1 && ok2 {
			if lo <= hi {
				return TruthTrue
			}
			return TruthFalse
		}
	case SymNot:
		if x.Arg.Kind == SymRange {
			lo, ok1 := x.Arg.Lo.CharValue()
			hi, ok2 := x.Arg.Hi.CharValue()
			if (ok1 && lo > 0) || (ok2 && hi < MaxChar) {
				return TruthTrue
			}
		}
	}

	if ba.v == nil || ba.v.Sort() != x.sort() {
		ba.v = ba.arena.Fresh("x", x.sort())
	}
	fml := x.Accept(ba.arena, ba.v)
	if fml.IsTrue() {
		return TruthTrue
	} else if fml.IsFalse() {
		return TruthFalse
	} else if ba.solver == nil {
		return TruthUnknown
	}

	t, err := ba.solver.CheckSat(fml)
	if err != nil {
		log.WithError(err).WithField("fml", fml).Debug("predicate satisfiability undecided")
		return TruthUnknown
	}
	return t
}
