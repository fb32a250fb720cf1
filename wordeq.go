package seqre

import (
	"slices"
	"strconv"
)

// EqResult is the outcome of reducing a word equation.
type EqResult int

const (
	// EqUnchanged means no reduction applied.
	EqUnchanged EqResult = iota

	// EqSimplified means the equation is equivalent to the returned pairs.
	EqSimplified

	// EqRefuted means the equation has no solution.
	EqRefuted
)

func (r EqResult) String() string {
	switch r {
	case EqUnchanged:
		return "unchanged"
	case EqSimplified:
		return "simplified"
	case EqRefuted:
		return "refuted"
	default:
		return "EqResult<" + strconv.Itoa(int(r)) + ">"
	}
}

// EqPair is an equality between two terms of the same sort.
type EqPair struct {
	L, R *Expr
}

// wordEq is the working state of a single word equation reduction. The
// operand lists are mutated by each pass. Derived equalities accumulate
// in eqs.
type wordEq struct {
	rw     *Rewriter
	ls, rs []*Expr
	eqs    []EqPair
}

// ReduceEq reduces the equation l = r between two sequences to a
// conjunction of smaller equalities. The returned pairs are equivalent to
// the equation unless the result is EqRefuted.
func (rw *Rewriter) ReduceEq(l, r *Expr) (EqResult, []EqPair) {
	assert(l.sort == r.sort, "reduce eq: sort mismatch: %s != %s", l.sort, r.sort)
	assert(l.sort.IsSeq(), "reduce eq: non-sequence sort: %s", l.sort)

	ls0, rs0 := flattenConcat(l), flattenConcat(r)
	w := &wordEq{rw: rw, ls: slices.Clone(ls0), rs: slices.Clone(rs0)}
	ok := w.reduceBack() &&
		w.reduceFront() &&
		w.reduceItos(&w.ls, &w.rs) &&
		w.reduceItos(&w.rs, &w.ls) &&
		w.reduceByLength() &&
		w.reduceSubsequence() &&
		w.reduceNonOverlap(w.ls, w.rs) &&
		w.reduceNonOverlap(w.rs, w.ls)
	if !ok {
		return EqRefuted, nil
	}

	changed := len(w.eqs) > 0 ||
		!(slices.Equal(w.ls, ls0) && slices.Equal(w.rs, rs0) || slices.Equal(w.ls, rs0) && slices.Equal(w.rs, ls0))
	if !changed {
		return EqUnchanged, []EqPair{{L: l, R: r}}
	}

	if len(w.ls) > 0 || len(w.rs) > 0 {
		a := rw.arena
		w.eqs = append(w.eqs, EqPair{L: a.ConcatN(l.sort, w.ls...), R: a.ConcatN(l.sort, w.rs...)})
	}
	return EqSimplified, w.eqs
}

func (w *wordEq) addEq(l, r *Expr) {
	w.eqs = append(w.eqs, EqPair{L: l, R: r})
}

// reduceBack strips matching operands from the end of both sides.
func (w *wordEq) reduceBack() bool {
	a := w.rw.arena
	for len(w.ls) > 0 && len(w.rs) > 0 {
		l, r := w.ls[len(w.ls)-1], w.rs[len(w.rs)-1]
		if isUnit(r) && l.op == OpString {
			l, r = r, l
			w.ls, w.rs = w.rs, w.ls
		}

		s1, isStr1 := l.StringValue()
		s2, isStr2 := r.StringValue()
		switch {
		case l == r:
			w.ls, w.rs = w.ls[:len(w.ls)-1], w.rs[:len(w.rs)-1]

		case isUnit(l) && isUnit(r):
			if a.AreEqual(l.args[0], r.args[0]) == TruthFalse {
				return false
			}
			w.addEq(l.args[0], r.args[0])
			w.ls, w.rs = w.ls[:len(w.ls)-1], w.rs[:len(w.rs)-1]

		case isUnit(l) && isStr2:
			w.addEq(a.Char(s2[len(s2)-1]), l.args[0])
			w.ls = w.ls[:len(w.ls)-1]
			if len(s2) == 1 {
				w.rs = w.rs[:len(w.rs)-1]
			} else {
				w.rs[len(w.rs)-1] = a.StrRunes(s2[:len(s2)-1])
			}

		case isStr1 && isStr2:
			n := min(len(s1), len(s2))
			for i := 1; i <= n; i++ {
				if s1[len(s1)-i] != s2[len(s2)-i] {
					return false
				}
			}
			w.ls, w.rs = w.ls[:len(w.ls)-1], w.rs[:len(w.rs)-1]
			if n < len(s1) {
				w.ls = append(w.ls, a.StrRunes(s1[:len(s1)-n]))
			}
			if n < len(s2) {
				w.rs = append(w.rs, a.StrRunes(s2[:len(s2)-n]))
			}

		default:
			return true
		}
	}
	return true
}

// reduceFront strips matching operands from the start of both sides.
func (w *wordEq) reduceFront() bool {
	a := w.rw.arena
	ls, rs := w.ls, w.rs
	i, j := 0, 0
loop:
	for i < len(ls) && j < len(rs) {
		l, r := ls[i], rs[j]
		if isUnit(r) && l.op == OpString {
			l, r = r, l
			ls, rs = rs, ls
			i, j = j, i
		}

		s1, isStr1 := l.StringValue()
		s2, isStr2 := r.StringValue()
		switch {
		case l == r:
			i, j = i+1, j+1

		case isUnit(l) && isUnit(r):
			if a.AreEqual(l.args[0], r.args[0]) == TruthFalse {
				return false
			}
			w.addEq(l.args[0], r.args[0])
			i, j = i+1, j+1

		case isUnit(l) && isStr2:
			w.addEq(a.Char(s2[0]), l.args[0])
			i++
			if len(s2) == 1 {
				j++
			} else {
				rs[j] = a.StrRunes(s2[1:])
			}

		case isStr1 && isStr2:
			n := min(len(s1), len(s2))
			if !slices.Equal(s1[:n], s2[:n]) {
				return false
			}
			if n == len(s1) {
				i++
			} else {
				ls[i] = a.StrRunes(s1[n:])
			}
			if n == len(s2) {
				j++
			} else {
				rs[j] = a.StrRunes(s2[n:])
			}

		default:
			break loop
		}
	}
	w.ls, w.rs = ls[i:], rs[j:]
	return true
}

// reduceItos solves itos(n) = s for a literal s.
//
//	itos(n) = "12"  => n = 12
//	itos(n) = "012" => false
func (w *wordEq) reduceItos(ls, rs *[]*Expr) bool {
	if len(*ls) != 1 || (*ls)[0].op != OpItoS {
		return true
	}
	s, ok := literalString(*rs)
	if !ok || len(s) == 0 {
		return true
	}
	for _, c := range s {
		if !isDigit(c) {
			return false
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	v, ok := parseDecimal(s)
	if !ok {
		return true
	}
	w.addEq((*ls)[0].args[0], w.rw.arena.Int(v))
	*ls, *rs = nil, nil
	return true
}

// reduceByLength compares the lengths of both sides. If one side has a
// fixed length equal to the least length of the other side, the symbolic
// operands of the other side are empty.
func (w *wordEq) reduceByLength() bool {
	if len(w.ls) == 0 && len(w.rs) == 0 {
		return true
	}

	len1, bounded1 := minLength(w.ls)
	len2, bounded2 := minLength(w.rs)
	switch {
	case bounded1 && len1 < len2, bounded2 && len2 < len1:
		return false
	case bounded1 && len1 == len2 && len1 > 0:
		w.setEmpty(w.rs)
	case bounded2 && len1 == len2 && len1 > 0:
		w.setEmpty(w.ls)
	default:
		return true
	}

	w.addEq(w.concatNonEmpty(w.ls), w.concatNonEmpty(w.rs))
	w.ls, w.rs = nil, nil
	return true
}

// setEmpty equates every symbolic operand of es with the empty sequence.
func (w *wordEq) setEmpty(es []*Expr) {
	for _, e := range es {
		if isUnit(e) || e.op == OpString {
			continue
		}
		w.addEq(w.rw.arena.Empty(e.sort), e)
	}
}

// concatNonEmpty concatenates the units and literals of es.
func (w *wordEq) concatNonEmpty(es []*Expr) *Expr {
	sort := es[0].sort
	var result []*Expr
	for _, e := range es {
		if isUnit(e) || e.op == OpString {
			result = append(result, e)
		}
	}
	return w.rw.arena.ConcatN(sort, result...)
}

// reduceNonOverlap refutes ls = rs when rs is concrete and a run of units
// and literals of ls can occur nowhere in rs.
func (w *wordEq) reduceNonOverlap(ls, rs []*Expr) bool {
	for _, e := range rs {
		if !isUnit(e) && e.op != OpString {
			return true
		}
	}

	var pattern []*Expr
	for _, x := range ls {
		if isUnit(x) || x.op == OpString {
			pattern = append(pattern, x)
			continue
		}
		if len(pattern) > 0 && w.rw.nonOverlap(pattern, rs) {
			return false
		}
		pattern = pattern[:0]
	}
	return len(pattern) == 0 || !w.rw.nonOverlap(pattern, rs)
}

// reduceSubsequence matches every operand of the shorter side against a
// distinct operand of the longer side, by identity or by both being units.
// The unmatched operands of the longer side must then be empty.
func (w *wordEq) reduceSubsequence() bool {
	ls, rs := w.ls, w.rs
	if len(ls) > len(rs) {
		ls, rs = rs, ls
	}
	if len(ls) == len(rs) || (len(ls) == 0 && len(rs) == 1) {
		return true
	}

	matched := make([]bool, len(rs))
	for _, x := range ls {
		j := 0
		for ; j < len(rs); j++ {
			if !matched[j] && (x == rs[j] || (isUnit(x) && isUnit(rs[j]))) {
				matched[j] = true
				break
			}
		}
		if j == len(rs) {
			return true
		}
	}

	var rest []*Expr
	for j, y := range rs {
		if matched[j] {
			rest = append(rest, y)
		} else if isUnit(y) || y.op == OpString {
			return false
		} else {
			w.addEq(w.rw.arena.Empty(y.sort), y)
		}
	}
	if len(ls) > 0 {
		a := w.rw.arena
		w.addEq(a.ConcatN(ls[0].sort, ls...), a.ConcatN(ls[0].sort, rest...))
	}
	w.ls, w.rs = nil, nil
	return true
}
