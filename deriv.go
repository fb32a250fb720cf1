package seqre

import (
	"fmt"

	"github.com/hashicorp/go-set/v3"
	log "github.com/sirupsen/logrus"
)

// Nullable returns the boolean expression stating that the empty sequence
// is in the language of r. Results are memoized.
func (rw *Rewriter) Nullable(r *Expr) *Expr {
	assert(r.sort.IsRe(), "nullable: non-regex sort: %s", r.sort)

	done := make(map[*Expr]*Expr)
	get := func(x *Expr) *Expr {
		if v := done[x]; v != nil {
			return v
		}
		return rw.cache.find(opIsNullable, x, nil, nil)
	}

	stack := []*Expr{r}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		if get(e) != nil {
			stack = stack[:len(stack)-1]
			continue
		}

		pending := false
		for _, dep := range nullableDeps(e) {
			if get(dep) == nil {
				stack = append(stack, dep)
				pending = true
			}
		}
		if pending {
			continue
		}

		v := rw.nullable(e, get)
		done[e] = v
		rw.cache.insert(opIsNullable, e, nil, nil, v)
		stack = stack[:len(stack)-1]
	}
	return done[r]
}

// nullableDeps returns the sub-regexes whose nullability defines the
// nullability of r.
func nullableDeps(r *Expr) []*Expr {
	switch r.op {
	case OpReConcat, OpReInter, OpReUnion, OpReDiff:
		return r.args
	case OpRePlus, OpReReverse, OpReComplement:
		return r.args[:1]
	case OpIte:
		return r.args[1:]
	case OpReLoop, OpRePower:
		if lo, _, _, ok := loopBounds(r); ok && lo > 0 {
			return r.args[:1]
		}
	}
	return nil
}

func (rw *Rewriter) nullable(r *Expr, get func(*Expr) *Expr) *Expr {
	a := rw.arena
	switch r.op {
	case OpReConcat, OpReInter:
		return a.And(get(r.args[0]), get(r.args[1]))
	case OpReUnion:
		return a.Or(get(r.args[0]), get(r.args[1]))
	case OpReDiff:
		return a.And(get(r.args[0]), a.Not(get(r.args[1])))
	case OpReStar, OpReOpt, OpReFull:
		return a.True()
	case OpReAllChar, OpReEmpty, OpReOfPred, OpReRange:
		return a.False()
	case OpRePlus, OpReReverse:
		return get(r.args[0])
	case OpReComplement:
		return a.Not(get(r.args[0]))
	case OpToRe:
		return a.Eq(a.Empty(r.sort.SeqSort()), r.args[0])
	case OpIte:
		return a.Ite(r.args[0], get(r.args[1]), get(r.args[2]))
	case OpReLoop, OpRePower:
		if lo, _, _, ok := loopBounds(r); ok {
			if lo == 0 {
				return a.True()
			}
			return get(r.args[0])
		}
	}
	return a.InRe(a.Empty(r.sort.SeqSort()), r)
}

// reAnd returns the language r if cond holds, and the empty language otherwise.
func (rw *Rewriter) reAnd(cond, r *Expr) *Expr {
	return rw.arena.Ite(cond, r, rw.arena.ReEmpty(r.sort))
}

// rePredicate returns the language holding the empty sequence if cond holds.
func (rw *Rewriter) rePredicate(cond *Expr, sort Sort) *Expr {
	return rw.reAnd(cond, rw.epsilon(sort))
}

// mkReDerivative rewrites the derivative of r by the element ele.
func (rw *Rewriter) mkReDerivative(ele, r *Expr) (Status, *Expr) {
	a := rw.arena
	switch r.op {
	case OpReConcat:
		r1, r2 := r.args[0], r.args[1]
		isNullable := rw.Nullable(r1)
		result := a.ReConcat(a.ReDerivative(ele, r1), r2)
		if isNullable.IsFalse() {
			return StatusRewrite2, result
		}
		union := a.ReUnion(result, a.ReDerivative(ele, r2))
		if isNullable.IsTrue() {
			return StatusRewrite3, union
		}
		return StatusRewrite3, a.Ite(isNullable, union, result)

	case OpReStar:
		return StatusRewrite2, a.ReConcat(a.ReDerivative(ele, r.args[0]), r)
	case OpRePlus:
		return StatusRewrite1, a.ReDerivative(ele, a.ReStar(r.args[0]))
	case OpReOpt:
		return StatusRewrite1, a.ReDerivative(ele, r.args[0])
	case OpReUnion:
		return StatusRewrite2, a.ReUnion(a.ReDerivative(ele, r.args[0]), a.ReDerivative(ele, r.args[1]))
	case OpReInter:
		return StatusRewrite2, a.ReInter(a.ReDerivative(ele, r.args[0]), a.ReDerivative(ele, r.args[1]))
	case OpReDiff:
		return StatusRewrite2, a.ReDiff(a.ReDerivative(ele, r.args[0]), a.ReDerivative(ele, r.args[1]))
	case OpReComplement:
		return StatusRewrite2, a.ReComplement(a.ReDerivative(ele, r.args[0]))
	case OpIte:
		return StatusRewrite2, a.Ite(r.args[0], a.ReDerivative(ele, r.args[1]), a.ReDerivative(ele, r.args[2]))

	case OpReLoop:
		if len(r.args) != 1 {
			return StatusFailed, nil
		}
		r1 := r.args[0]
		if _, lo, ok := loopUnbounded(r); ok {
			return StatusRewrite2, a.ReConcat(a.ReDerivative(ele, r1), a.ReLoopFrom(r1, max(lo-1, 0)))
		}
		_, lo, hi, _ := loopBounded(r)
		if hi == 0 {
			return StatusDone, a.ReEmpty(r.sort)
		}
		return StatusRewrite2, a.ReConcat(a.ReDerivative(ele, r1), a.ReLoop(r1, max(lo-1, 0), hi-1))

	case OpReFull, OpReEmpty:
		return StatusDone, r
	case OpReAllChar:
		return StatusDone, rw.epsilon(r.sort)

	case OpToRe:
		if head, tail, ok := rw.getHeadTail(r.args[0]); ok {
			return StatusRewrite2, rw.reAnd(a.Eq(ele, head), a.ToRe(tail))
		} else if r.args[0].IsEmptySeq() {
			return StatusDone, a.ReEmpty(r.sort)
		}
		return StatusFailed, nil

	case OpReRange:
		lo, hi := r.args[0], r.args[1]
		s1, ok1 := lo.StringValue()
		s2, ok2 := hi.StringValue()
		if ok1 && ok2 {
			if len(s1) != 1 || len(s2) != 1 {
				return StatusDone, a.ReEmpty(r.sort)
			}
			cond := a.And(a.CharLe(a.Char(s1[0]), ele), a.CharLe(ele, a.Char(s2[0])))
			return StatusRewrite3, rw.rePredicate(cond, r.sort)
		} else if lo.op == OpUnit && hi.op == OpUnit {
			cond := a.And(a.CharLe(lo.args[0], ele), a.CharLe(ele, hi.args[0]))
			return StatusRewrite2, rw.rePredicate(cond, r.sort)
		}
		return StatusFailed, nil

	case OpReOfPred:
		return StatusRewrite2, rw.rePredicate(a.Subst(r.args[0], ele), r.sort)
	}

	// Derivatives of derivatives, reversals, powers and free regexes are stuck.
	return StatusFailed, nil
}

// Derivative returns the derivative of r by the element ele in BDD form:
// nested if-then-else terms whose conditions decrease in rank from the
// outside in, over regex leaves free of if-then-else. Returns
// ErrNotSupported if r contains a construct without a derivative.
func (rw *Rewriter) Derivative(ele, r *Expr) (*Expr, error) {
	assert(r.sort.IsRe(), "derivative: non-regex sort: %s", r.sort)
	assert(ele.sort == r.sort.ElemSort(), "derivative: sort mismatch: %s, %s", ele.sort, r.sort)
	return rw.derivative(ele, r)
}

func (rw *Rewriter) derivative(ele, r *Expr) (*Expr, error) {
	if err := rw.ctx.Err(); err != nil {
		return nil, ErrCanceled
	} else if result := rw.cache.find(OpReDerivative, ele, r, nil); result != nil {
		return result, nil
	}

	result, err := rw.derivativeOf(ele, r)
	if err != nil {
		return nil, err
	}
	rw.cache.insert(OpReDerivative, ele, r, nil, result)
	return result, nil
}

func (rw *Rewriter) derivativeOf(ele, r *Expr) (*Expr, error) {
	a := rw.arena
	empty := a.ReEmpty(r.sort)

	switch r.op {
	case OpReConcat:
		return rw.derivativeConcat(ele, r)

	case OpReStar:
		d, err := rw.derivative(ele, r.args[0])
		if err != nil {
			return nil, err
		}
		return rw.combine(OpReConcat, d, r, nil), nil
	case OpRePlus:
		d, err := rw.derivative(ele, r.args[0])
		if err != nil {
			return nil, err
		}
		return rw.combine(OpReConcat, d, a.ReStar(r.args[0]), nil), nil
	case OpReOpt:
		return rw.derivative(ele, r.args[0])

	case OpReUnion, OpReInter, OpReDiff:
		d1, err := rw.derivative(ele, r.args[0])
		if err != nil {
			return nil, err
		}
		d2, err := rw.derivative(ele, r.args[1])
		if err != nil {
			return nil, err
		}
		return rw.combine(r.op, d1, d2, nil), nil

	case OpIte:
		d1, err := rw.derivative(ele, r.args[1])
		if err != nil {
			return nil, err
		}
		d2, err := rw.derivative(ele, r.args[2])
		if err != nil {
			return nil, err
		}
		return rw.combine(OpIte, d1, d2, r.args[0]), nil

	case OpReComplement:
		d, err := rw.derivative(ele, r.args[0])
		if err != nil {
			return nil, err
		}
		return rw.mapLeaves(d, func(leaf *Expr) *Expr {
			return rw.mkLeaf(OpReComplement, nil, leaf)
		}), nil

	case OpReLoop, OpRePower:
		lo, hi, bounded, ok := loopBounds(r)
		if !ok {
			return nil, fmt.Errorf("%w: derivative of %s", ErrNotSupported, r)
		} else if bounded && (hi == 0 || lo > hi) {
			return empty, nil
		}
		d, err := rw.derivative(ele, r.args[0])
		if err != nil {
			return nil, err
		}
		rest := a.ReLoopFrom(r.args[0], max(lo-1, 0))
		if bounded {
			rest = a.ReLoop(r.args[0], max(lo-1, 0), hi-1)
		}
		return rw.combine(OpReConcat, d, rest, nil), nil

	case OpReFull, OpReEmpty:
		return r, nil
	case OpReAllChar:
		return rw.epsilon(r.sort), nil

	case OpToRe:
		if head, tail, ok := rw.getHeadTail(r.args[0]); ok {
			return rw.reAnd(a.Eq(ele, head), a.ToRe(tail)), nil
		} else if r.args[0].IsEmptySeq() {
			return empty, nil
		}

	case OpReRange:
		lo, ok1 := rw.compiler.unitChar(r.args[0])
		hi, ok2 := rw.compiler.unitChar(r.args[1])
		if !ok1 || !ok2 {
			return empty, nil
		}
		return rw.rePredicate(a.And(a.CharLe(lo, ele), a.CharLe(ele, hi)), r.sort), nil

	case OpReOfPred:
		return rw.rePredicate(a.Subst(r.args[0], ele), r.sort), nil
	}

	return nil, fmt.Errorf("%w: derivative of %s", ErrNotSupported, r)
}

// derivativeConcat returns the derivative of a concatenation chain. Only
// the derivatives of the operands up to the first one that is never
// nullable are computed.
func (rw *Rewriter) derivativeConcat(ele, r *Expr) (*Expr, error) {
	var items, tails []*Expr
	for r.op == OpReConcat {
		items = append(items, r.args[0])
		tails = append(tails, r.args[1])
		r = r.args[1]
	}
	items = append(items, r)

	var ds, ns []*Expr
	for i, x := range items {
		d, err := rw.derivative(ele, x)
		if err != nil {
			return nil, err
		}
		if i < len(tails) {
			d = rw.combine(OpReConcat, d, tails[i], nil)
		}
		n := rw.Nullable(x)
		ds, ns = append(ds, d), append(ns, n)
		if n.IsFalse() {
			break
		}
	}

	acc := ds[len(ds)-1]
	for i := len(ds) - 2; i >= 0; i-- {
		union := rw.combine(OpReUnion, ds[i], acc, nil)
		if ns[i].IsTrue() {
			acc = union
		} else {
			acc = rw.combine(OpIte, union, ds[i], ns[i])
		}
	}
	return acc, nil
}

// Successors returns the cofactors of the derivative of r by ele whose
// condition may hold and whose language is not empty.
func (rw *Rewriter) Successors(ele, r *Expr) ([]Cofactor, error) {
	d, err := rw.Derivative(ele, r)
	if err != nil {
		return nil, err
	}

	var result []Cofactor
	for _, cof := range rw.Cofactors(d) {
		cond := rw.ElimCondition(ele, cof.Cond)
		if cond.IsFalse() || cof.Re.op == OpReEmpty {
			continue
		}
		result = append(result, Cofactor{Cond: cond, Re: cof.Re})
	}
	return result, nil
}

// Matcher decides membership of concrete sequences by iterated derivatives.
// Residual regexes are memoized per character, so matching many strings
// against the same regex builds a deterministic automaton lazily.
type Matcher struct {
	rw      *Rewriter
	simp    *Simplifier
	visited *set.Set[*Expr]
	next    map[*Expr]map[rune]*Expr
}

// NewMatcher returns a matcher that builds terms with rw.
func NewMatcher(rw *Rewriter) *Matcher {
	return &Matcher{
		rw:      rw,
		simp:    NewSimplifier(rw),
		visited: set.New[*Expr](0),
		next:    make(map[*Expr]map[rune]*Expr),
	}
}

// NumStates returns the number of distinct residual regexes visited.
func (m *Matcher) NumStates() int { return m.visited.Size() }

// Match reports whether s is in the language of r. r must be ground.
func (m *Matcher) Match(s []rune, r *Expr) (bool, error) {
	assert(r.sort == SortRegLan, "match: non-string regex sort: %s", r.sort)

	r, err := m.simp.Simplify(r)
	if err != nil {
		return false, err
	}
	for _, c := range s {
		m.visited.Insert(r)
		if r.op == OpReEmpty {
			return false, nil
		} else if r.op == OpReFull {
			return true, nil
		}
		if r, err = m.step(r, c); err != nil {
			return false, err
		}
	}
	m.visited.Insert(r)

	v, err := m.simp.Simplify(m.rw.Nullable(r))
	if err != nil {
		return false, err
	} else if !v.IsTrue() && !v.IsFalse() {
		return false, fmt.Errorf("%w: nullable residual %s", ErrNotSupported, v)
	}
	return v.IsTrue(), nil
}

// step returns the simplified residual of r after reading c.
func (m *Matcher) step(r *Expr, c rune) (*Expr, error) {
	if next := m.next[r][c]; next != nil {
		return next, nil
	}

	a := m.rw.arena
	d, err := m.rw.Derivative(a.Char(c), r)
	if err != nil {
		return nil, err
	}
	next, err := m.simp.Simplify(d)
	if err != nil {
		return nil, err
	} else if next.op == OpIte {
		return nil, fmt.Errorf("%w: residual depends on free variables: %s", ErrNotSupported, next)
	}

	if m.next[r] == nil {
		m.next[r] = make(map[rune]*Expr)
	}
	m.next[r][c] = next
	log.WithFields(log.Fields{"char": string(c), "residual": next}).Trace("derivative step")
	return next, nil
}
