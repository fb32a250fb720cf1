package seqre

import (
	"math"
	"slices"
)

// isEpsilon returns true if r is the language holding only the empty sequence.
func isEpsilon(r *Expr) bool {
	return r.op == OpToRe && r.args[0].IsEmptySeq()
}

// epsilon returns the language holding only the empty sequence.
func (rw *Rewriter) epsilon(sort Sort) *Expr {
	return rw.arena.ToRe(rw.arena.Empty(sort.SeqSort()))
}

// loopBounded returns the body and bounds of a loop with constant lower
// and upper bounds.
func loopBounded(r *Expr) (body *Expr, lo, hi int, ok bool) {
	if r.op != OpReLoop || len(r.params) != 2 {
		return nil, 0, 0, false
	}
	return r.args[0], r.params[0], r.params[1], true
}

// loopUnbounded returns the body and lower bound of a loop with a constant
// lower bound and no upper bound.
func loopUnbounded(r *Expr) (body *Expr, lo int, ok bool) {
	if r.op != OpReLoop || len(r.params) != 1 {
		return nil, 0, false
	}
	return r.args[0], r.params[0], true
}

func (rw *Rewriter) seqConcat(x, y *Expr) *Expr {
	if st, r := rw.mkSeqConcat(x, y); st != StatusFailed {
		return r
	}
	return rw.arena.Concat(x, y)
}

// mkReConcat rewrites the concatenation of two languages.
//
//	.* ++ .* => .*
//	[] ++ r => [], r ++ [] => []
//	"" ++ r => r, r ++ "" => r
//	to_re(s1) ++ to_re(s2) => to_re(s1 ++ s2)
//	r* ++ r* => r*
//	r* ++ r => r ++ r*
func (rw *Rewriter) mkReConcat(x, y *Expr) (Status, *Expr) {
	a := rw.arena
	switch {
	case x.op == OpReFull && y.op == OpReFull:
		return StatusDone, x
	case x.op == OpReEmpty:
		return StatusDone, x
	case y.op == OpReEmpty:
		return StatusDone, y
	case isEpsilon(x):
		return StatusDone, y
	case isEpsilon(y):
		return StatusDone, x
	case x.op == OpToRe && y.op == OpToRe:
		return StatusRewrite2, a.ToRe(a.Concat(x.args[0], y.args[0]))
	case x.op == OpReStar && y.op == OpReStar && x.args[0] == y.args[0]:
		return StatusDone, x
	case x.op == OpReStar && x.args[0] == y:
		return StatusDone, a.ReConcat(y, x)
	}

	if x1, lo1, hi1, ok := loopBounded(x); ok && lo1 <= hi1 {
		if y1, lo2, hi2, ok := loopBounded(y); ok && lo2 <= hi2 && x1 == y1 {
			return StatusDone, a.ReLoop(x1, lo1+lo2, hi1+hi2)
		}
	}
	if x1, lo1, ok := loopUnbounded(x); ok {
		if y1, lo2, ok := loopUnbounded(y); ok && x1 == y1 {
			return StatusDone, a.ReLoopFrom(x1, lo1+lo2)
		}
	}

	for i := 0; i < 2; i++ {
		// (loop r lo1) ++ (loop r lo2 hi2) => (loop r lo1+lo2)
		if x1, lo1, ok := loopUnbounded(x); ok {
			if y1, lo2, hi2, ok := loopBounded(y); ok && lo2 <= hi2 && x1 == y1 {
				return StatusDone, a.ReLoopFrom(x1, lo1+lo2)
			}
		}
		// (loop r lo1 hi1) ++ r* => (loop r lo1)
		if x1, lo1, _, ok := loopBounded(x); ok && y.op == OpReStar && y.args[0] == x1 {
			return StatusDone, a.ReLoopFrom(x1, lo1)
		}
		// (loop r lo1) ++ r* => (loop r lo1)
		if x1, _, ok := loopUnbounded(x); ok && y.op == OpReStar && y.args[0] == x1 {
			return StatusDone, x
		}
		// (loop r lo1 hi1) ++ r => (loop r lo1+1 hi1+1)
		if x1, lo1, hi1, ok := loopBounded(x); ok && lo1 <= hi1 && x1 == y {
			return StatusDone, a.ReLoop(x1, lo1+1, hi1+1)
		}
		x, y = y, x
	}
	return StatusFailed, nil
}

// mkReUnion rewrites the union of two languages.
func (rw *Rewriter) mkReUnion(x, y *Expr) (Status, *Expr) {
	switch {
	case x == y:
		return StatusDone, x
	case x.op == OpReEmpty:
		return StatusDone, y
	case y.op == OpReEmpty:
		return StatusDone, x
	case x.op == OpReFull:
		return StatusDone, x
	case y.op == OpReFull:
		return StatusDone, y
	case x.op == OpReStar && isEpsilon(y):
		return StatusDone, x
	case y.op == OpReStar && isEpsilon(x):
		return StatusDone, y
	}
	return StatusFailed, nil
}

// mkReComplement rewrites the complement of a language.
//
//	comp(r1 inter r2) => comp(r1) union comp(r2)
//	comp(r1 union r2) => comp(r1) inter comp(r2)
//	comp([]) => .*, comp(.*) => []
//	comp(ite(c, r1, r2)) => ite(c, comp(r1), comp(r2))
func (rw *Rewriter) mkReComplement(r *Expr) (Status, *Expr) {
	a := rw.arena
	switch r.op {
	case OpReInter:
		return StatusRewrite2, a.ReUnion(a.ReComplement(r.args[0]), a.ReComplement(r.args[1]))
	case OpReUnion:
		return StatusRewrite2, a.ReInter(a.ReComplement(r.args[0]), a.ReComplement(r.args[1]))
	case OpReEmpty:
		return StatusDone, a.ReFull(r.sort)
	case OpReFull:
		return StatusDone, a.ReEmpty(r.sort)
	case OpIte:
		return StatusRewrite2, a.Ite(r.args[0], a.ReComplement(r.args[1]), a.ReComplement(r.args[2]))
	}
	return StatusFailed, nil
}

// mkReInter rewrites the intersection of two languages.
//
//	r inter r => r
//	[] inter r => [], .* inter r => r
//	r inter comp(r) => []
//	to_re(s) inter r => ite(s in r, to_re(s), [])
func (rw *Rewriter) mkReInter(x, y *Expr) (Status, *Expr) {
	a := rw.arena
	switch {
	case x == y:
		return StatusDone, x
	case x.op == OpReEmpty:
		return StatusDone, x
	case y.op == OpReEmpty:
		return StatusDone, y
	case x.op == OpReFull:
		return StatusDone, y
	case y.op == OpReFull:
		return StatusDone, x
	case (x.op == OpReComplement && x.args[0] == y) || (y.op == OpReComplement && y.args[0] == x):
		return StatusDone, a.ReEmpty(x.sort)
	}

	if y.op == OpToRe {
		x, y = y, x
	}
	if x.op == OpToRe {
		return StatusRewrite2, a.Ite(a.InRe(x.args[0], y), x, a.ReEmpty(x.sort))
	}
	return StatusFailed, nil
}

// mkReDiff rewrites the difference r1 \ r2 as r1 inter comp(r2).
func (rw *Rewriter) mkReDiff(x, y *Expr) (Status, *Expr) {
	a := rw.arena
	return StatusRewrite2, a.ReInter(x, a.ReComplement(y))
}

// mkReLoop rewrites a loop. Loops with numeral term bounds become loops
// with constant bounds.
func (rw *Rewriter) mkReLoop(e *Expr) (Status, *Expr) {
	a := rw.arena
	r := e.args[0]

	switch len(e.args) {
	case 2:
		if lo, ok := e.args[1].IntValue(); ok && lo >= 0 && lo <= math.MaxInt32 {
			return StatusRewrite1, a.ReLoopFrom(r, int(lo))
		}
		return StatusFailed, nil
	case 3:
		lo, ok1 := e.args[1].IntValue()
		hi, ok2 := e.args[2].IntValue()
		if ok1 && ok2 && lo >= 0 && hi >= 0 && lo <= math.MaxInt32 && hi <= math.MaxInt32 {
			return StatusRewrite1, a.ReLoop(r, int(lo), int(hi))
		}
		return StatusFailed, nil
	}

	bounded := len(e.params) == 2
	lo2, hi2 := e.params[0], e.params[0]
	if bounded {
		hi2 = e.params[1]
	}

	switch {
	case bounded && lo2 > hi2:
		return StatusDone, a.ReEmpty(r.sort)
	case bounded && hi2 == 0:
		return StatusDone, rw.epsilon(r.sort)
	}

	// (loop (loop r lo) lo2) => (loop r lo*lo2), for lo2 > 0
	if body, lo, ok := loopUnbounded(r); ok && !bounded && lo2 > 0 {
		return StatusRewrite1, a.ReLoopFrom(body, lo*lo2)
	}
	// (loop (loop r l l) h h) => (loop r l*h l*h)
	if body, lo, hi, ok := loopBounded(r); ok && bounded && lo == hi && lo2 == hi2 {
		return StatusRewrite1, a.ReLoop(body, lo*lo2, hi*hi2)
	}

	switch {
	case bounded && lo2 == 1 && hi2 == 1:
		return StatusDone, r
	case !bounded && lo2 == 0:
		return StatusRewrite1, a.ReStar(r)
	case r.op == OpIte:
		return StatusRewrite2, a.Ite(r.args[0],
			a.App(OpReLoop, e.params, r.args[1]),
			a.App(OpReLoop, e.params, r.args[2]))
	}
	return StatusFailed, nil
}

// mkRePower rewrites r^n as a loop of exactly n repetitions.
func (rw *Rewriter) mkRePower(e *Expr) (Status, *Expr) {
	n := e.params[0]
	return StatusRewrite1, rw.arena.ReLoop(e.args[0], n, n)
}

// mkReStar rewrites the Kleene closure of a language.
//
//	r** => r*, .** => .*
//	allchar* => .*
//	[]* => ""
//	r+* => r*
//	(r1* union r2)* => (r1 union r2)*
//	(r1 union r2*)* => (r1 union r2)*
//	("" union r)* => r*
//	(r1* ++ r2*)* => (r1 union r2)*
//	ite(c, r1, r2)* => ite(c, r1*, r2*)
func (rw *Rewriter) mkReStar(r *Expr) (Status, *Expr) {
	a := rw.arena
	switch r.op {
	case OpReStar, OpReFull:
		return StatusDone, r
	case OpReAllChar:
		return StatusDone, a.ReFull(r.sort)
	case OpReEmpty:
		return StatusDone, rw.epsilon(r.sort)
	case OpRePlus:
		return StatusDone, a.ReStar(r.args[0])
	case OpReUnion:
		x, y := r.args[0], r.args[1]
		switch {
		case x.op == OpReStar:
			return StatusRewrite2, a.ReStar(a.ReUnion(x.args[0], y))
		case y.op == OpReStar:
			return StatusRewrite2, a.ReStar(a.ReUnion(x, y.args[0]))
		case isEpsilon(x):
			return StatusRewrite2, a.ReStar(y)
		case isEpsilon(y):
			return StatusRewrite2, a.ReStar(x)
		}
	case OpReConcat:
		x, y := r.args[0], r.args[1]
		if x.op == OpReStar && y.op == OpReStar {
			return StatusRewrite2, a.ReStar(a.ReUnion(x.args[0], y.args[0]))
		}
	case OpIte:
		return StatusRewrite2, a.Ite(r.args[0], a.ReStar(r.args[1]), a.ReStar(r.args[2]))
	}
	return StatusFailed, nil
}

// mkRePlus rewrites one or more repetitions of a language.
//
//	[]+ => [], .*+ => .*, ""+ => ""
//	r++ => r+, r*+ => r*
//	r+ => r ++ r*
func (rw *Rewriter) mkRePlus(r *Expr) (Status, *Expr) {
	switch {
	case r.op == OpReEmpty, r.op == OpReFull, isEpsilon(r):
		return StatusDone, r
	case r.op == OpRePlus, r.op == OpReStar:
		return StatusDone, r
	}
	a := rw.arena
	return StatusRewrite2, a.ReConcat(r, a.ReStar(r))
}

// mkReOpt rewrites r? as "" union r.
func (rw *Rewriter) mkReOpt(r *Expr) (Status, *Expr) {
	return StatusRewrite1, rw.arena.ReUnion(rw.epsilon(r.sort), r)
}

// mkReReverse pushes a reversal inwards.
func (rw *Rewriter) mkReReverse(r *Expr) (Status, *Expr) {
	a := rw.arena
	switch r.op {
	case OpReConcat:
		return StatusRewrite2, a.ReConcat(a.ReReverse(r.args[1]), a.ReReverse(r.args[0]))
	case OpReStar:
		return StatusRewrite2, a.ReStar(a.ReReverse(r.args[0]))
	case OpRePlus:
		return StatusRewrite2, a.RePlus(a.ReReverse(r.args[0]))
	case OpReOpt:
		return StatusRewrite2, a.ReOpt(a.ReReverse(r.args[0]))
	case OpReComplement:
		return StatusRewrite2, a.ReComplement(a.ReReverse(r.args[0]))
	case OpReUnion:
		return StatusRewrite2, a.ReUnion(a.ReReverse(r.args[0]), a.ReReverse(r.args[1]))
	case OpReInter:
		return StatusRewrite2, a.ReInter(a.ReReverse(r.args[0]), a.ReReverse(r.args[1]))
	case OpReDiff:
		return StatusRewrite2, a.ReDiff(a.ReReverse(r.args[0]), a.ReReverse(r.args[1]))
	case OpIte:
		return StatusRewrite2, a.Ite(r.args[0], a.ReReverse(r.args[1]), a.ReReverse(r.args[2]))
	case OpReLoop, OpRePower:
		if len(r.args) != 1 {
			return StatusFailed, nil
		}
		return StatusRewrite2, a.App(r.op, r.params, a.ReReverse(r.args[0]))
	case OpReReverse:
		return StatusDone, r.args[0]
	case OpReFull, OpReEmpty, OpReRange, OpReAllChar, OpReOfPred:
		return StatusDone, r
	case OpToRe:
		s := r.args[0]
		if runes, ok := s.StringValue(); ok {
			rev := slices.Clone(runes)
			slices.Reverse(rev)
			return StatusDone, a.ToRe(a.StrRunes(rev))
		} else if s.op == OpUnit || s.IsEmptySeq() {
			return StatusDone, r
		} else if s.op == OpConcat {
			return StatusRewrite3, a.ReConcat(a.ReReverse(a.ToRe(s.args[1])), a.ReReverse(a.ToRe(s.args[0])))
		}
	}
	return StatusFailed, nil
}

// getHeadTail splits s into its first element and the remaining sequence.
func (rw *Rewriter) getHeadTail(s *Expr) (head, tail *Expr, ok bool) {
	a := rw.arena
	var rest []*Expr
	for s.op == OpConcat {
		rest = append(rest, s.args[1])
		s = s.args[0]
	}

	if s.op == OpUnit {
		head, tail = s.args[0], a.Empty(s.sort)
	} else if runes, ok := s.StringValue(); ok && len(runes) > 0 {
		head, tail = a.Char(runes[0]), a.StrRunes(runes[1:])
	} else {
		return nil, nil, false
	}

	for i := len(rest) - 1; i >= 0; i-- {
		tail = rw.seqConcat(tail, rest[i])
	}
	return head, tail, true
}

// getHeadTailReversed splits s into a sequence and its last element.
func (rw *Rewriter) getHeadTailReversed(s *Expr) (head, tail *Expr, ok bool) {
	a := rw.arena
	var rest []*Expr
	for s.op == OpConcat {
		rest = append(rest, s.args[0])
		s = s.args[1]
	}

	if s.op == OpUnit {
		head, tail = a.Empty(s.sort), s.args[0]
	} else if runes, ok := s.StringValue(); ok && len(runes) > 0 {
		head, tail = a.StrRunes(runes[:len(runes)-1]), a.Char(runes[len(runes)-1])
	} else {
		return nil, nil, false
	}

	for i := len(rest) - 1; i >= 0; i-- {
		head = rw.seqConcat(rest[i], head)
	}
	return head, tail, true
}

// mkSeqInRe rewrites the membership of s in the language of r.
//
//	s in [] => false
//	s in .* => true
//	s in to_re(t) => s = t
//	"" in r => nullable(r)
//	(c ++ tail) in r => tail in d(c, r)
//	(head ++ c) in r => head in reverse(d(c, reverse(r)))
//	s in ite(p, r1, r2) => ite(p, s in r1, s in r2)
func (rw *Rewriter) mkSeqInRe(s, r *Expr) (Status, *Expr) {
	a := rw.arena
	switch {
	case r.op == OpReEmpty:
		return StatusDone, a.False()
	case r.op == OpReFull:
		return StatusDone, a.True()
	case r.op == OpToRe:
		return StatusRewrite1, a.Eq(s, r.args[0])
	case s.IsEmptySeq():
		result := rw.Nullable(r)
		if result.op == OpInRe {
			return StatusDone, result
		}
		return StatusRewriteFull, result
	}

	if head, tail, ok := rw.getHeadTail(s); ok {
		return StatusRewrite2, a.InRe(tail, a.ReDerivative(head, r))
	}
	if head, tail, ok := rw.getHeadTailReversed(s); ok {
		return StatusRewriteFull, a.InRe(head, a.ReReverse(a.ReDerivative(tail, a.ReReverse(r))))
	}
	if r.op == OpIte {
		return StatusRewrite2, a.Ite(r.args[0], a.InRe(s, r.args[1]), a.InRe(s, r.args[2]))
	}

	if rw.config.ContainsPatternRewrite {
		if st, result := rw.splitReHeadTail(s, r); st != StatusFailed {
			return st, result
		} else if result, ok := rw.rewriteContainsPattern(s, r); ok {
			return StatusRewriteFull, result
		}
	}

	if r.IsGround() {
		aut, err := rw.compiler.Compile(r)
		if err != nil {
			return StatusFailed, nil
		} else if aut.IsEmpty() {
			return StatusDone, a.False()
		} else if chars, ok := aut.IsSequence(); ok {
			units := make([]*Expr, len(chars))
			for i, c := range chars {
				units[i] = a.Unit(c)
			}
			return StatusRewrite1, a.Eq(s, a.ConcatN(s.sort, units...))
		}
	}
	return StatusFailed, nil
}

// splitReHeadTail splits a membership in r1 ++ r2 where all words of r1,
// or all words of r2, have the same length.
func (rw *Rewriter) splitReHeadTail(s, r *Expr) (Status, *Expr) {
	a := rw.arena
	if hd, tl, n, ok := getReHeadTail(r); ok {
		lenHd, lenS := a.Int(int64(n)), a.Length(s)
		return StatusRewriteFull, a.And(
			a.Ge(lenS, lenHd),
			a.InRe(a.Extract(s, a.Int(0), lenHd), hd),
			a.InRe(a.Extract(s, lenHd, a.Sub(lenS, lenHd)), tl),
		)
	}
	if hd, tl, n, ok := rw.getReHeadTailReversed(r); ok {
		lenTl, lenS := a.Int(int64(n)), a.Length(s)
		lenHd := a.Sub(lenS, lenTl)
		return StatusRewriteFull, a.And(
			a.Ge(lenS, lenTl),
			a.InRe(a.Extract(s, a.Int(0), lenHd), hd),
			a.InRe(a.Extract(s, lenHd, lenTl), tl),
		)
	}
	return StatusFailed, nil
}

// getReHeadTail splits r1 ++ r2 if every word of r1 has length n.
func getReHeadTail(r *Expr) (head, tail *Expr, n int, ok bool) {
	if r.op != OpReConcat {
		return nil, nil, 0, false
	}
	head, tail = r.args[0], r.args[1]
	lo := reMinLength(head)
	if hi, bounded := reMaxLength(head); !bounded || hi != lo {
		return nil, nil, 0, false
	}
	return head, tail, lo, true
}

// getReHeadTailReversed splits a concatenation chain before its longest
// suffix whose words all have length n.
func (rw *Rewriter) getReHeadTailReversed(r *Expr) (head, tail *Expr, n int, ok bool) {
	var prefix []*Expr
	for r.op == OpReConcat {
		r1, r2 := r.args[0], r.args[1]
		lo := reMinLength(r2)
		if hi, bounded := reMaxLength(r2); bounded && hi == lo {
			head, tail, n = r1, r2, lo
			for i := len(prefix) - 1; i >= 0; i-- {
				head = rw.arena.ReConcat(prefix[i], head)
			}
			return head, tail, n, true
		}
		prefix = append(prefix, r1)
		r = r2
	}
	return nil, nil, 0, false
}

// reMinLength returns a lower bound on the length of the words of r.
func reMinLength(r *Expr) int {
	switch r.op {
	case OpReConcat:
		return reMinLength(r.args[0]) + reMinLength(r.args[1])
	case OpReUnion:
		return min(reMinLength(r.args[0]), reMinLength(r.args[1]))
	case OpIte:
		return min(reMinLength(r.args[1]), reMinLength(r.args[2]))
	case OpReInter:
		return max(reMinLength(r.args[0]), reMinLength(r.args[1]))
	case OpReDiff, OpRePlus, OpReReverse:
		return reMinLength(r.args[0])
	case OpReAllChar, OpReRange, OpReOfPred:
		return 1
	case OpToRe:
		n, _ := minLength(flattenConcat(r.args[0]))
		return n
	case OpReLoop, OpRePower:
		if lo, _, _, ok := loopBounds(r); ok {
			return lo * reMinLength(r.args[0])
		}
	}
	return 0
}

// reMaxLength returns an upper bound on the length of the words of r.
// bounded is false if the words of r may be arbitrarily long.
func reMaxLength(r *Expr) (n int, bounded bool) {
	switch r.op {
	case OpReEmpty:
		return 0, true
	case OpReConcat, OpReUnion, OpIte, OpReInter:
		x, y := r.args[0], r.args[1]
		if r.op == OpIte {
			x, y = r.args[1], r.args[2]
		}
		n1, ok1 := reMaxLength(x)
		n2, ok2 := reMaxLength(y)
		switch {
		case r.op == OpReInter && ok1 && ok2:
			return min(n1, n2), true
		case r.op == OpReInter && ok1:
			return n1, true
		case r.op == OpReInter && ok2:
			return n2, true
		case !ok1 || !ok2:
			return 0, false
		case r.op == OpReConcat:
			return n1 + n2, true
		default:
			return max(n1, n2), true
		}
	case OpReDiff, OpReOpt, OpReReverse:
		return reMaxLength(r.args[0])
	case OpReAllChar, OpReRange, OpReOfPred:
		return 1, true
	case OpToRe:
		return minLength(flattenConcat(r.args[0]))
	case OpReLoop, OpRePower:
		if _, hi, bounded, ok := loopBounds(r); ok && bounded {
			if n, ok := reMaxLength(r.args[0]); ok {
				return hi * n, true
			}
		}
	}
	return 0, false
}

// isReContainsPattern matches .* ++ p1 ++ .* ++ ... ++ pn ++ .* where each
// pattern pi is a chain of to_re operands. Returns the sequences of each pattern.
func isReContainsPattern(r *Expr) ([][]*Expr, bool) {
	if r.op != OpReConcat || r.args[0].op != OpReFull {
		return nil, false
	}
	patterns := [][]*Expr{nil}
	r = r.args[1]
	for r.op == OpReConcat {
		switch r1 := r.args[0]; r1.op {
		case OpToRe:
			patterns[len(patterns)-1] = append(patterns[len(patterns)-1], r1.args[0])
		case OpReFull:
			patterns = append(patterns, nil)
		default:
			return nil, false
		}
		r = r.args[1]
	}
	return patterns, r.op == OpReFull
}

// nonOverlap reports whether the sequences p and q provably cannot overlap:
// no suffix of one is a prefix of the other, and neither contains the
// other. Both must be made of literals and units.
func (rw *Rewriter) nonOverlap(p, q []*Expr) bool {
	p, ok1 := rw.unitsOf(p)
	q, ok2 := rw.unitsOf(q)
	if !ok1 || !ok2 || len(p) == 0 || len(q) == 0 {
		return false
	} else if len(p) > len(q) {
		p, q = q, p
	}

	// p[i] may be aligned with q[i+shift] for every i in [lo, hi).
	canOverlap := func(shift, lo, hi int) bool {
		for i := lo; i < hi; i++ {
			if rw.arena.AreEqual(p[i].args[0], q[i+shift].args[0]) == TruthFalse {
				return false
			}
		}
		return true
	}
	for shift := 1 - len(p); shift < len(q); shift++ {
		if canOverlap(shift, max(0, -shift), min(len(p), len(q)-shift)) {
			return false
		}
	}
	return true
}

// unitsOf returns es with string literals split into units.
func (rw *Rewriter) unitsOf(es []*Expr) ([]*Expr, bool) {
	a := rw.arena
	var units []*Expr
	for _, e := range es {
		for _, x := range flattenConcat(e) {
			if runes, ok := x.StringValue(); ok {
				for _, c := range runes {
					units = append(units, a.Unit(a.Char(c)))
				}
			} else if isUnit(x) {
				units = append(units, x)
			} else {
				return nil, false
			}
		}
	}
	return units, true
}

// rewriteContainsPattern splits a membership of x ++ y in a containment
// pattern when the literal prefix of y overlaps none of the patterns.
//
//	(x ++ "abc" ++ s) in (.* ++ "de" ++ .* ++ "ff" ++ .*)
//	=> ("abc" ++ s) in (.* ++ "de" ++ .* ++ "ff" ++ .*)
//	   or (x in (.* ++ "de" ++ .*) and ("abc" ++ s) in (.* ++ "ff" ++ .*))
//	   or (x in (.* ++ "de" ++ .* ++ "ff" ++ .*) and ("abc" ++ s) in .*)
func (rw *Rewriter) rewriteContainsPattern(s, r *Expr) (*Expr, bool) {
	a := rw.arena
	if s.op != OpConcat {
		return nil, false
	}
	patterns, ok := isReContainsPattern(r)
	if !ok {
		return nil, false
	}
	x, y := s.args[0], s.args[1]

	var lhs []*Expr
	for u := y; u.op == OpConcat && (isUnit(u.args[0]) || u.args[0].op == OpString); u = u.args[1] {
		lhs = append(lhs, u.args[0])
	}
	for _, p := range patterns {
		if !rw.nonOverlap(p, lhs) {
			return nil, false
		}
	}

	full := a.ReFull(r.sort)
	fmls := []*Expr{a.InRe(y, r)}
	prefix := full
	for i := range patterns {
		for _, e := range patterns[i] {
			prefix = a.ReConcat(prefix, a.ToRe(e))
		}
		prefix = a.ReConcat(prefix, full)
		suffix := full
		for j := i + 1; j < len(patterns); j++ {
			for _, e := range patterns[j] {
				suffix = a.ReConcat(suffix, a.ToRe(e))
			}
			suffix = a.ReConcat(suffix, full)
		}
		fmls = append(fmls, a.And(a.InRe(x, prefix), a.InRe(y, suffix)))
	}
	return a.Or(fmls...), true
}

// reduceReEq rewrites an equality between two languages if one of them is empty.
func (rw *Rewriter) reduceReEq(l, r *Expr) (Status, *Expr) {
	if l.op == OpReEmpty {
		l, r = r, l
	}
	if r.op == OpReEmpty {
		return rw.reduceReIsEmpty(l)
	}
	return StatusFailed, nil
}

// reduceReIsEmpty rewrites the emptiness test of the language of r.
func (rw *Rewriter) reduceReIsEmpty(r *Expr) (Status, *Expr) {
	a := rw.arena
	isEmpty := func(r *Expr) *Expr { return a.Eq(r, a.ReEmpty(r.sort)) }

	switch r.op {
	case OpReUnion:
		return StatusRewrite2, a.And(isEmpty(r.args[0]), isEmpty(r.args[1]))
	case OpReStar, OpToRe, OpReAllChar, OpReFull, OpReOpt:
		return StatusDone, a.False()
	case OpReConcat:
		return StatusRewrite2, a.Or(isEmpty(r.args[0]), isEmpty(r.args[1]))
	case OpReRange:
		lo, ok1 := r.args[0].StringValue()
		hi, ok2 := r.args[1].StringValue()
		if !ok1 || !ok2 {
			return StatusFailed, nil
		} else if len(lo) != 1 || len(hi) != 1 {
			return StatusDone, a.True()
		}
		return StatusDone, a.Bool(lo[0] > hi[0])
	case OpReLoop:
		if len(r.args) != 1 {
			return StatusFailed, nil
		}
		_, lo, hi, ok := loopBounded(r)
		if !ok {
			lo, hi = r.params[0], math.MaxInt
		}
		if lo == 0 {
			return StatusDone, a.False()
		} else if lo <= hi {
			return StatusRewrite1, isEmpty(r.args[0])
		}
	case OpReInter:
		// Partial DNF expansion.
		r1, r2 := r.args[0], r.args[1]
		if r1.op == OpReUnion {
			return StatusRewrite3, isEmpty(a.ReUnion(a.ReInter(r1.args[0], r2), a.ReInter(r1.args[1], r2)))
		} else if r2.op == OpReUnion {
			return StatusRewrite3, isEmpty(a.ReUnion(a.ReInter(r2.args[0], r1), a.ReInter(r2.args[1], r1)))
		}
	}
	return StatusFailed, nil
}

// Cofactor is a regex guarded by a condition.
type Cofactor struct {
	Cond *Expr
	Re   *Expr
}

// Cofactors splits r into regexes free of if-then-else, each guarded by
// the conjunction of the conditions leading to it.
func (rw *Rewriter) Cofactors(r *Expr) []Cofactor {
	var result []Cofactor
	var conds []*Expr
	var visit func(r *Expr)
	visit = func(r *Expr) {
		cond, th, el, ok := rw.hasCofactor(r)
		if !ok {
			result = append(result, Cofactor{Cond: rw.arena.And(conds...), Re: r})
			return
		}
		conds = append(conds, cond)
		visit(th)
		conds[len(conds)-1] = rw.arena.Not(cond)
		visit(el)
		conds = conds[:len(conds)-1]
	}
	visit(r)
	return result
}

// hasCofactor finds a condition of an if-then-else reachable from r through
// concatenation, union, intersection and complement, and returns r with
// every such if-then-else on cond replaced by its then and else branches.
func (rw *Rewriter) hasCofactor(r *Expr) (cond, th, el *Expr, ok bool) {
	if r.op == OpIte {
		return r.args[0], r.args[1], r.args[2], true
	}

	cacheTh, cacheEl := make(map[*Expr]*Expr), make(map[*Expr]*Expr)
	noCofactor, visited := make(map[*Expr]bool), make(map[*Expr]bool)
	todo := []*Expr{r}
	for len(todo) > 0 {
		e := todo[len(todo)-1]
		if visited[e] {
			todo = todo[:len(todo)-1]
			continue
		}

		if e.op == OpIte {
			if cond == nil || cond == e.args[0] {
				cond = e.args[0]
				cacheTh[e], cacheEl[e] = e.args[1], e.args[2]
			} else {
				noCofactor[e] = true
			}
			visited[e] = true
			todo = todo[:len(todo)-1]
			continue
		}

		switch e.op {
		case OpReConcat, OpReUnion, OpReInter, OpReComplement:
		default:
			visited[e], noCofactor[e] = true, true
			todo = todo[:len(todo)-1]
			continue
		}

		argsTh := make([]*Expr, 0, len(e.args))
		argsEl := make([]*Expr, 0, len(e.args))
		hasCof, pending := false, false
		for _, arg := range e.args {
			if noCofactor[arg] {
				argsTh, argsEl = append(argsTh, arg), append(argsEl, arg)
			} else if th, ok := cacheTh[arg]; ok {
				argsTh, argsEl = append(argsTh, th), append(argsEl, cacheEl[arg])
				hasCof = true
			} else {
				todo = append(todo, arg)
				pending = true
			}
		}
		if pending {
			continue
		}

		if hasCof {
			cacheTh[e] = rw.arena.Rebuild(e, argsTh)
			cacheEl[e] = rw.arena.Rebuild(e, argsEl)
		} else {
			noCofactor[e] = true
		}
		visited[e] = true
		todo = todo[:len(todo)-1]
	}

	if th, ok := cacheTh[r]; ok && cond != nil {
		return cond, th, cacheEl[r], true
	}
	return nil, nil, nil, false
}

// charRange is an inclusive interval of characters.
type charRange struct{ lo, hi rune }

// intersectRanges returns the intersection of the sorted, disjoint ranges
// with [lo, hi].
func intersectRanges(ranges []charRange, lo, hi rune) []charRange {
	var result []charRange
	for _, r := range ranges {
		if hi < r.lo {
			break
		} else if r.hi >= lo {
			result = append(result, charRange{max(r.lo, lo), min(r.hi, hi)})
		}
	}
	return result
}

// ElimCondition simplifies a condition over the element elem. Conjunctions
// of character comparisons against constants are checked for
// satisfiability. If elem is a variable, the result is equivalent to
// the existential closure of cond over elem where it can be computed.
func (rw *Rewriter) ElimCondition(elem, cond *Expr) *Expr {
	a := rw.arena
	conds := []*Expr{cond}
	if cond.op == OpAnd {
		conds = cond.args
	}
	isVar := elem.op == OpVar

	if elem.sort == SortChar {
		ranges := []charRange{{0, MaxChar}}
		excludeChar := func(c rune) {
			below := intersectRanges(ranges, 0, c-1)
			ranges = append(below, intersectRanges(ranges, c+1, MaxChar)...)
		}

		allRanges := true
		for _, e := range conds {
			neg := false
			if e.op == OpNot {
				e, neg = e.args[0], true
			}
			c, side, ok := constCharCompare(e, elem)
			switch {
			case !ok:
				allRanges = false
			case e.op == OpEq && !neg:
				ranges = intersectRanges(ranges, c, c)
			case e.op == OpEq:
				excludeChar(c)
			case side == compareUpper && !neg: // elem <= c
				ranges = intersectRanges(ranges, 0, c)
			case side == compareUpper: // c < elem
				ranges = intersectRanges(ranges, c+1, MaxChar)
			case !neg: // c <= elem
				ranges = intersectRanges(ranges, c, MaxChar)
			default: // elem < c
				ranges = intersectRanges(ranges, 0, c-1)
			}
			if !allRanges || len(ranges) == 0 {
				break
			}
		}

		if allRanges {
			if len(ranges) == 0 {
				return a.False()
			} else if isVar {
				return a.True()
			}
		}
	}

	var solution *Expr
	for _, e := range conds {
		if e.op != OpEq {
			continue
		}
		lhs, rhs := e.args[0], e.args[1]
		if rhs == elem {
			lhs, rhs = rhs, lhs
		}
		if lhs == elem {
			solution = rhs
			break
		}
	}
	if solution == nil {
		return cond
	}

	cond = rw.replace(cond, elem, solution)
	if !isVar {
		cond = a.And(a.Eq(elem, solution), cond)
	}
	return cond
}

const (
	compareLower = iota + 1 // c <= elem
	compareUpper            // elem <= c
)

// constCharCompare matches an equality or character comparison between
// elem and a constant character.
func constCharCompare(e, elem *Expr) (c rune, side int, ok bool) {
	if e.op != OpEq && e.op != OpCharLe {
		return 0, 0, false
	}
	lhs, rhs := e.args[0], e.args[1]
	if lhs == elem {
		c, ok = rhs.CharValue()
		return c, compareUpper, ok
	} else if rhs == elem {
		c, ok = lhs.CharValue()
		return c, compareLower, ok
	}
	return 0, 0, false
}

// replace returns e with every occurrence of from replaced by to.
func (rw *Rewriter) replace(e, from, to *Expr) *Expr {
	memo := make(map[*Expr]*Expr)
	var visit func(e *Expr) *Expr
	visit = func(e *Expr) *Expr {
		if e == from {
			return to
		} else if len(e.args) == 0 {
			return e
		} else if other, ok := memo[e]; ok {
			return other
		}
		args := make([]*Expr, len(e.args))
		for i, arg := range e.args {
			args[i] = visit(arg)
		}
		other := rw.arena.Rebuild(e, args)
		memo[e] = other
		return other
	}
	return visit(e)
}
