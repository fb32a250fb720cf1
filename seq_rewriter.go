package seqre

import (
	"slices"
	"strconv"
)

// flattenConcat returns the operands of a concatenation chain from left to
// right. Empty sequences are dropped.
func flattenConcat(s *Expr) []*Expr {
	var es []*Expr
	stack := []*Expr{s}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case e.op == OpConcat:
			stack = append(stack, e.args[1], e.args[0])
		case e.IsEmptySeq():
		default:
			es = append(es, e)
		}
	}
	return es
}

// concatUnits returns the operands of a concatenation chain with string
// literals split into units of their characters.
func (rw *Rewriter) concatUnits(s *Expr) []*Expr {
	a := rw.arena
	var es []*Expr
	for _, e := range flattenConcat(s) {
		if runes, ok := e.StringValue(); ok {
			for _, c := range runes {
				es = append(es, a.Unit(a.Char(c)))
			}
			continue
		}
		es = append(es, e)
	}
	return es
}

// concatSimple concatenates a and b, dropping empty operands.
func (rw *Rewriter) concatSimple(a, b *Expr) *Expr {
	if a.IsEmptySeq() {
		return b
	} else if b.IsEmptySeq() {
		return a
	}
	return rw.arena.Concat(a, b)
}

func isUnit(e *Expr) bool { return e.op == OpUnit }

// minLength returns the sum of the lengths of the literal and unit operands.
// bounded is true if all operands have a known length.
func minLength(es []*Expr) (n int, bounded bool) {
	bounded = true
	for _, e := range es {
		if isUnit(e) {
			n++
		} else if runes, ok := e.StringValue(); ok {
			n += len(runes)
		} else if !e.IsEmptySeq() {
			bounded = false
		}
	}
	return n, bounded
}

// literalString returns the characters of a sequence made only of
// literals and units over constant characters.
func literalString(es []*Expr) ([]rune, bool) {
	var s []rune
	for _, e := range es {
		runes, ok := literalRunes(e)
		if !ok {
			return nil, false
		}
		s = append(s, runes...)
	}
	return s, true
}

// getLengths decomposes e into a sum of sequence lengths plus a constant.
func getLengths(e *Expr) (lens []*Expr, k int64, ok bool) {
	stack := []*Expr{e}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if x.op == OpAdd {
			for i := len(x.args) - 1; i >= 0; i-- {
				stack = append(stack, x.args[i])
			}
		} else if x.op == OpLength {
			lens = append(lens, x.args[0])
		} else if v, ok := x.IntValue(); ok {
			k += v
		} else {
			return nil, 0, false
		}
	}
	return lens, k, true
}

// removeFirst removes the first occurrence of x from es.
func removeFirst(es []*Expr, x *Expr) ([]*Expr, bool) {
	i := slices.Index(es, x)
	if i < 0 {
		return es, false
	}
	return slices.Delete(es, i, i+1), true
}

// signOf returns the sign of e if it is determined by its shape.
func signOf(e *Expr) (sign int, ok bool) {
	switch e.op {
	case OpAdd:
		for _, arg := range e.args {
			s, ok := signOf(arg)
			if !ok {
				return 0, false
			} else if sign == 0 {
				sign = s
			} else if s != 0 && s != sign {
				return 0, false
			}
		}
		return sign, true
	case OpMul:
		sign = 1
		for _, arg := range e.args {
			s, ok := signOf(arg)
			if !ok {
				return 0, false
			}
			sign *= s
		}
		return sign, true
	case OpLength:
		return 1, true
	case OpInt:
		switch {
		case e.value > 0:
			return 1, true
		case e.value < 0:
			return -1, true
		}
		return 0, true
	}
	return 0, false
}

// isSuffix returns true if len is the length of s minus offset.
func isSuffix(s, offset, n *Expr) bool {
	lens, k, ok := getLengths(n)
	if !ok {
		return false
	}
	off, ok := offset.IntValue()
	return ok && off > 0 && k == -off && slices.Contains(lens, s)
}

// indexSlice returns the first position of t in s at or after from, or -1.
func indexSlice[T comparable](s, t []T, from int) int {
	if from < 0 || from > len(s) {
		return -1
	}
	for i := from; i+len(t) <= len(s); i++ {
		if slices.Equal(s[i:i+len(t)], t) {
			return i
		}
	}
	return -1
}

// lastIndexSlice returns the last position of t in s, or -1.
func lastIndexSlice[T comparable](s, t []T) int {
	for i := len(s) - len(t); i >= 0; i-- {
		if slices.Equal(s[i:i+len(t)], t) {
			return i
		}
	}
	return -1
}

// replaceSlice replaces the first occurrence of t in s by u.
func replaceSlice[T comparable](s, t, u []T) []T {
	i := indexSlice(s, t, 0)
	if i < 0 {
		return s
	}
	return slices.Concat(s[:i], u, s[i+len(t):])
}

func (rw *Rewriter) mkStrUnits(e *Expr) (Status, *Expr) {
	runes, _ := e.StringValue()
	if rw.config.CoalesceChars || len(runes) == 0 {
		return StatusFailed, nil
	}
	a := rw.arena
	es := make([]*Expr, len(runes))
	for i, c := range runes {
		es[i] = a.Unit(a.Char(c))
	}
	return StatusDone, a.ConcatN(e.sort, es...)
}

func (rw *Rewriter) mkSeqUnit(x *Expr) (Status, *Expr) {
	if c, ok := x.CharValue(); ok && rw.config.CoalesceChars {
		return StatusDone, rw.arena.StrRunes([]rune{c})
	}
	return StatusFailed, nil
}

func (rw *Rewriter) mkSeqConcat(a, b *Expr) (Status, *Expr) {
	ar := rw.arena
	s1, isc1 := a.StringValue()
	s2, isc2 := b.StringValue()
	isc1 = isc1 && rw.config.CoalesceChars
	isc2 = isc2 && rw.config.CoalesceChars

	if isc1 && isc2 {
		return StatusDone, ar.StrRunes(slices.Concat(s1, s2))
	} else if a.op == OpConcat {
		return StatusRewrite2, ar.Concat(a.args[0], ar.Concat(a.args[1], b))
	} else if a.IsEmptySeq() {
		return StatusDone, b
	} else if b.IsEmptySeq() {
		return StatusDone, a
	}
	if isc1 && b.op == OpConcat {
		if s2, ok := b.args[0].StringValue(); ok {
			return StatusDone, ar.Concat(ar.StrRunes(slices.Concat(s1, s2)), b.args[1])
		}
	}
	return StatusFailed, nil
}

func (rw *Rewriter) mkSeqLength(s *Expr) (Status, *Expr) {
	a := rw.arena
	es := flattenConcat(s)
	var n int64
	var lens []*Expr
	for _, e := range es {
		if runes, ok := e.StringValue(); ok {
			n += int64(len(runes))
		} else if isUnit(e) {
			n++
		} else {
			lens = append(lens, a.Length(e))
		}
	}

	if len(lens) == 0 {
		return StatusDone, a.Int(n)
	} else if len(lens) != len(es) || len(lens) != 1 {
		return StatusRewrite2, a.Add(append(lens, a.Int(n))...)
	}
	return StatusFailed, nil
}

// mkSeqExtract rewrites extract(s, pos, n), the sub-sequence of s of length n
// starting at pos.
func (rw *Rewriter) mkSeqExtract(s, pos, n *Expr) (Status, *Expr) {
	a := rw.arena
	empty := a.Empty(s.sort)
	str, constBase := s.StringValue()
	p, constPos := pos.IntValue()
	l, constLen := n.IntValue()
	lengthPos := pos.op == OpLength || pos.op == OpAdd

	if sign, ok := signOf(n); ok && sign < 0 {
		return StatusDone, empty
	} else if (constPos && p < 0) || (constLen && l <= 0) {
		return StatusDone, empty
	} else if constPos && constBase && p >= int64(len(str)) {
		return StatusDone, empty
	} else if constPos && constLen && constBase {
		end := int64(len(str))
		if l < end-p {
			end = p + l
		}
		return StatusDone, a.StrRunes(str[p:end])
	}

	as := rw.concatUnits(s)
	if len(as) == 0 {
		return StatusDone, empty
	}

	// extract(a ++ b ++ c, len(a) + len(b), n) = extract(c, 0, n)
	if lengthPos {
		lens, k, ok := getLengths(pos)
		if !ok || k < 0 {
			return StatusFailed, nil
		}
		lhs := flattenConcat(s)
		i := 0
		for ; i < len(lhs); i++ {
			var found bool
			if lens, found = removeFirst(lens, lhs[i]); found {
				continue
			} else if isUnit(lhs[i]) && k > 0 {
				k--
				continue
			}
			break
		}
		if i == 0 {
			return StatusFailed, nil
		}
		offset := []*Expr{a.Int(k)}
		for _, x := range lens {
			offset = append(offset, a.Length(x))
		}
		return StatusRewrite2, a.Extract(a.ConcatN(s.sort, lhs[i:]...), a.Add(offset...), n)
	}

	if !constPos {
		return StatusFailed, nil
	}

	// extract(s, 0, len(s)) = s
	if p == 0 && n.op == OpLength {
		if lhs := flattenConcat(s); len(lhs) > 0 && lhs[0] == n.args[0] {
			return StatusDone, n.args[0]
		}
	}

	if s.op == OpExtract && isSuffix(s.args[0], s.args[1], s.args[2]) && isSuffix(s, pos, n) {
		s1, pos1, n1 := s.args[0], s.args[1], s.args[2]
		return StatusRewrite3, a.Extract(s1, a.Add(pos1, pos), a.Sub(n1, pos))
	}

	offset := 0
	for offset < len(as) && isUnit(as[offset]) && int64(offset) < p {
		offset++
	}
	if offset == 0 && p > 0 {
		return StatusFailed, nil
	}

	if p == 0 && !slices.ContainsFunc(as, func(e *Expr) bool { return !isUnit(e) }) {
		result := empty
		for i := 1; i <= len(as); i++ {
			result = a.Ite(a.Ge(n, a.Int(int64(i))), a.ConcatN(s.sort, as[:i]...), result)
		}
		return StatusRewriteFull, result
	} else if p == 0 && !constLen {
		return StatusFailed, nil
	} else if offset == len(as) {
		return StatusDone, empty
	}

	if constLen && p == int64(offset) {
		i := offset
		for i < len(as) && isUnit(as[i]) && int64(i-offset) < l {
			i++
		}
		if int64(i-offset) == l {
			return StatusDone, a.ConcatN(s.sort, as[offset:i]...)
		} else if i == len(as) {
			return StatusDone, a.ConcatN(s.sort, as[offset:]...)
		}
	}
	if offset == 0 {
		return StatusFailed, nil
	}
	return StatusRewrite3, a.Extract(a.ConcatN(s.sort, as[offset:]...), a.Sub(pos, a.Int(int64(offset))), n)
}

// cannotStartMatch returns true if x and the first operand y of the
// searched sequence are distinct units.
func (rw *Rewriter) cannotStartMatch(x, y *Expr) bool {
	return isUnit(x) && isUnit(y) && rw.arena.AreEqual(x, y) == TruthFalse
}

func hasPrefix(s, prefix []rune) bool {
	return len(prefix) <= len(s) && slices.Equal(s[:len(prefix)], prefix)
}

func (rw *Rewriter) mkSeqContains(s, t *Expr) (Status, *Expr) {
	a := rw.arena
	if s1, ok := s.StringValue(); ok {
		if s2, ok := t.StringValue(); ok {
			return StatusDone, a.Bool(indexSlice(s1, s2, 0) >= 0)
		}
	}
	if t.op == OpExtract && t.args[0] == s {
		return StatusDone, a.True()
	}

	as, bs := rw.concatUnits(s), rw.concatUnits(t)
	if len(bs) == 0 {
		return StatusDone, a.True()
	} else if len(as) == 0 {
		return StatusRewrite2, a.Eq(t, a.Empty(t.sort))
	}

	for i := 0; i+len(bs) <= len(as); i++ {
		if slices.Equal(as[i:i+len(bs)], bs) {
			return StatusDone, a.True()
		}
	}
	isValue := func(e *Expr) bool { return e.IsValue() }
	if allOf(as, isValue) && allOf(bs, isValue) {
		return StatusDone, a.False()
	}

	if lenA, bounded := minLength(as); bounded {
		if lenB, _ := minLength(bs); lenB > lenA {
			return StatusDone, a.False()
		}
	}

	offs, sz := 0, len(as)
	b0, bl := bs[0], bs[len(bs)-1]
	for offs < len(as) && rw.cannotStartMatch(as[offs], b0) {
		offs++
	}
	for sz > offs && rw.cannotStartMatch(as[sz-1], bl) {
		sz--
	}
	if offs == sz {
		return StatusRewrite2, a.Eq(t, a.Empty(t.sort))
	} else if offs > 0 || sz < len(as) {
		return StatusRewrite2, a.Contains(a.ConcatN(s.sort, as[offs:sz]...), t)
	}

	if allOf(as, isUnit) && allOf(bs, isUnit) {
		var ors []*Expr
		for i := 0; i+len(bs) <= len(as); i++ {
			ands := make([]*Expr, len(bs))
			for j := range bs {
				ands[j] = a.Eq(as[i+j], bs[j])
			}
			ors = append(ors, a.And(ands...))
		}
		return StatusRewriteFull, a.Or(ors...)
	}

	if len(bs) == 1 && isUnit(bs[0]) && len(as) > 1 {
		ors := make([]*Expr, len(as))
		for i, x := range as {
			ors[i] = a.Contains(x, bs[0])
		}
		return StatusRewriteFull, a.Or(ors...)
	}
	return StatusFailed, nil
}

func allOf(es []*Expr, fn func(*Expr) bool) bool {
	for _, e := range es {
		if !fn(e) {
			return false
		}
	}
	return true
}

// mkSeqAt rewrites at(s, i), the unit at position i of s or empty.
func (rw *Rewriter) mkSeqAt(s, i *Expr) (Status, *Expr) {
	a := rw.arena
	empty := a.Empty(s.sort)
	lens, k, ok := getLengths(i)
	if !ok {
		return StatusFailed, nil
	} else if len(lens) == 0 && k < 0 {
		return StatusDone, empty
	}

	if len(lens) == 0 && s.op == OpAt {
		if k > 0 {
			return StatusDone, empty
		}
		return StatusDone, s
	}

	lhs := rw.concatUnits(s)
	if len(lhs) == 0 {
		return StatusDone, empty
	}

	j := 0
	for ; j < len(lhs); j++ {
		if k >= 0 && slices.Contains(lens, lhs[j]) {
			lens, _ = removeFirst(lens, lhs[j])
		} else if isUnit(lhs[j]) && k == 0 && len(lens) == 0 {
			return StatusRewrite1, lhs[j]
		} else if isUnit(lhs[j]) && k > 0 {
			k--
		} else {
			break
		}
	}
	if j == 0 {
		return StatusFailed, nil
	} else if j == len(lhs) {
		return StatusDone, empty
	}

	offset := []*Expr{a.Int(k)}
	for _, x := range lens {
		offset = append(offset, a.Length(x))
	}
	return StatusRewrite2, a.At(a.ConcatN(s.sort, lhs[j:]...), a.Add(offset...))
}

func (rw *Rewriter) mkSeqNth(s, i *Expr) (Status, *Expr) {
	a := rw.arena
	if v, ok := i.IntValue(); ok && v == 0 && isUnit(s) {
		return StatusDone, s.args[0]
	}

	if s.op == OpExtract {
		if p, ok := s.args[1].IntValue(); ok {
			lens, k, ok := getLengths(s.args[2])
			if ok && p >= 0 && p == -k && len(lens) == 1 && lens[0] == s.args[0] {
				return StatusRewriteFull, a.Nth(s.args[0], a.Add(i, a.Int(p)))
			}
		}
	}

	inBounds := a.And(a.Ge(i, a.Int(0)), a.Not(a.Le(a.Length(s), i)))
	return StatusRewriteFull, a.Ite(inBounds, a.NthI(s, i), a.NthU(s, i))
}

func (rw *Rewriter) mkSeqNthI(s, i *Expr) (Status, *Expr) {
	idx, ok := i.IntValue()
	if !ok || idx < 0 {
		return StatusFailed, nil
	}
	for j, e := range rw.concatUnits(s) {
		if !isUnit(e) {
			return StatusFailed, nil
		} else if int64(j) == idx {
			return StatusDone, e.args[0]
		}
	}
	return StatusFailed, nil
}

func (rw *Rewriter) mkSeqLastIndex(s, t *Expr) (Status, *Expr) {
	s1, ok1 := s.StringValue()
	s2, ok2 := t.StringValue()
	if ok1 && ok2 {
		return StatusDone, rw.arena.Int(int64(lastIndexSlice(s1, s2)))
	}
	return StatusFailed, nil
}

// lengthComparison is the result of comparing the lengths of two operand lists.
type lengthComparison int

const (
	lengthUnknown lengthComparison = iota
	lengthShorter
	lengthSame
	lengthLonger
)

// compareLengths compares the lengths of as and bs after cancelling
// symbolic operands occurring in both.
func compareLengths(as, bs []*Expr) lengthComparison {
	var unitsA, unitsB int
	mults := make(map[*Expr]int)
	for _, e := range as {
		if isUnit(e) {
			unitsA++
		} else {
			mults[e]++
		}
	}
	foreign := false
	for _, e := range bs {
		if isUnit(e) {
			unitsB++
		} else if k, ok := mults[e]; ok {
			if k == 1 {
				delete(mults, e)
			} else {
				mults[e] = k - 1
			}
		} else {
			foreign = true
		}
	}

	switch {
	case unitsA > unitsB && !foreign:
		return lengthLonger
	case unitsA == unitsB && !foreign && len(mults) == 0:
		return lengthSame
	case unitsB > unitsA && len(mults) == 0:
		return lengthShorter
	}
	return lengthUnknown
}

// mkSeqIndex rewrites indexof(s, t, i), the first position of t in s at or
// after i.
func (rw *Rewriter) mkSeqIndex(s, t, i *Expr) (Status, *Expr) {
	a := rw.arena
	zero, minusOne := a.Int(0), a.Int(-1)
	s1, isc1 := s.StringValue()
	s2, isc2 := t.StringValue()
	r, isNum := i.IntValue()

	if isc1 && isc2 && isNum && r >= 0 {
		if r > int64(len(s1)) {
			return StatusDone, minusOne
		}
		return StatusDone, a.Int(int64(indexSlice(s1, s2, int(r))))
	} else if isNum && r < 0 {
		return StatusDone, minusOne
	} else if t.IsEmptySeq() && isNum && r == 0 {
		return StatusDone, i
	} else if s.IsEmptySeq() {
		return StatusRewrite2, a.Ite(a.And(a.Eq(i, zero), a.Eq(t, a.Empty(t.sort))), zero, minusOne)
	}

	if s == t {
		if isNum {
			if r == 0 {
				return StatusDone, zero
			}
			return StatusDone, minusOne
		}
		return StatusRewrite2, a.Ite(a.Eq(zero, i), zero, minusOne)
	}

	// shift returns indexof(rest, t, j) shifted by n positions.
	shift := func(n int, rest []*Expr, j *Expr) *Expr {
		x := a.Index(a.ConcatN(s.sort, rest...), t, j)
		return a.Ite(a.Ge(x, zero), a.Add(a.Int(int64(n)), x), minusOne)
	}

	as := rw.concatUnits(s)
	if isNum {
		n := 0
		for r > 0 && n < len(as) && isUnit(as[n]) {
			r--
			n++
		}
		if n > 0 {
			return StatusRewriteFull, shift(n, as[n:], a.Int(r))
		}
	}

	isZero := isNum && r == 0
	bs := rw.concatUnits(t)
	n := 0
	for isZero && n < len(as) && len(bs) > 0 && isUnit(as[n]) && isUnit(bs[0]) && a.AreEqual(as[n], bs[0]) == TruthFalse {
		n++
	}
	if n > 0 {
		return StatusRewriteFull, shift(n, as[n:], i)
	}

	switch compareLengths(as, bs) {
	case lengthShorter:
		if isZero {
			return StatusDone, minusOne
		}
	case lengthSame:
		return StatusRewriteFull, a.Ite(a.Le(i, minusOne), minusOne,
			a.Ite(a.Eq(i, zero), a.Ite(a.Eq(s, t), zero, minusOne), minusOne))
	}

	if isZero && len(as) > 0 && isUnit(as[0]) {
		return StatusRewrite3, a.Ite(a.Prefix(t, s), zero, shift(1, as[1:], i))
	}
	return StatusFailed, nil
}

// mkSeqReplace rewrites replace(s, t, u), replacing the first occurrence of t in s by u.
func (rw *Rewriter) mkSeqReplace(s, t, u *Expr) (Status, *Expr) {
	a := rw.arena
	s1, isc1 := s.StringValue()
	s2, isc2 := t.StringValue()
	s3, isc3 := u.StringValue()
	if isc1 && isc2 && isc3 {
		return StatusDone, a.StrRunes(replaceSlice(s1, s2, s3))
	} else if t == u {
		return StatusDone, s
	} else if s == t {
		return StatusDone, u
	} else if t.IsEmptySeq() {
		return StatusRewrite1, a.Concat(u, s)
	}

	lhs := flattenConcat(s)
	if len(lhs) == 0 {
		if n, _ := minLength(flattenConcat(t)); n > 0 {
			return StatusDone, s
		}
		return StatusFailed, nil
	}

	// s = t ++ rest
	if lhs[0] == t {
		lhs[0] = u
		return StatusRewrite1, a.ConcatN(s.sort, lhs...)
	}
	if isc2 && isc3 {
		if s1, ok := lhs[0].StringValue(); ok && indexSlice(s1, s2, 0) >= 0 {
			lhs[0] = a.StrRunes(replaceSlice(s1, s2, s3))
			return StatusRewrite1, a.ConcatN(s.sort, lhs...)
		}
	}

	lhs, rhs := rw.concatUnits(s), rw.concatUnits(t)
	if len(rhs) == 0 {
		return StatusRewrite1, a.Concat(u, s)
	}

	// compareAt reports whether t occurs in s at position i.
	compareAt := func(i int) Truth {
		for j := 0; j < len(rhs) && i+j < len(lhs); j++ {
			x, y := lhs[i+j], rhs[j]
			if x == y {
				continue
			} else if !isUnit(x) || !isUnit(y) {
				return TruthUnknown
			} else if a.AreEqual(x, y) == TruthFalse {
				return TruthFalse
			}
			return TruthUnknown
		}
		return TruthTrue
	}

	i := 0
	for ; i < len(lhs); i++ {
		cmp := compareAt(i)
		if cmp == TruthFalse && isUnit(lhs[i]) {
			continue
		} else if cmp == TruthTrue && len(lhs) < i+len(rhs) {
			head := a.ConcatN(s.sort, lhs[:i]...)
			tail := a.ConcatN(s.sort, lhs[i:]...)
			return StatusRewriteFull, a.Ite(a.Eq(tail, t), a.Concat(head, u), s)
		} else if cmp == TruthTrue {
			es := slices.Concat(lhs[:i], []*Expr{u}, lhs[i+len(rhs):])
			return StatusRewriteFull, a.ConcatN(s.sort, es...)
		}
		break
	}
	if i > 0 {
		head := a.ConcatN(s.sort, lhs[:i]...)
		tail := a.ConcatN(s.sort, lhs[i:]...)
		return StatusRewriteFull, a.Concat(head, a.Replace(tail, t, u))
	}
	return StatusFailed, nil
}

// leftmost returns the leftmost operand of a concatenation chain.
func leftmost(e *Expr) *Expr {
	for e.op == OpConcat {
		e = e.args[0]
	}
	return e
}

// mkSeqPrefix rewrites prefixof(s, t), true if s is a prefix of t.
func (rw *Rewriter) mkSeqPrefix(s, t *Expr) (Status, *Expr) {
	a := rw.arena
	s1, isc1 := s.StringValue()
	s2, isc2 := t.StringValue()
	if isc1 && isc2 {
		return StatusDone, a.Bool(hasPrefix(s2, s1))
	} else if s.IsEmptySeq() {
		return StatusDone, a.True()
	}

	a1, b1 := leftmost(s), leftmost(t)
	s1, isc1 = a1.StringValue()
	s2, isc2 = b1.StringValue()
	if a1 != b1 && isc1 && isc2 && len(s1) > 0 && len(s2) > 0 {
		as, bs := flattenConcat(s), flattenConcat(t)
		if len(s1) <= len(s2) {
			if !hasPrefix(s2, s1) {
				return StatusDone, a.False()
			} else if s == a1 {
				return StatusDone, a.True()
			}
			bs[0] = a.StrRunes(s2[len(s1):])
			return StatusRewriteFull, a.Prefix(a.ConcatN(s.sort, as[1:]...), a.ConcatN(s.sort, bs...))
		}
		if !hasPrefix(s1, s2) || t == b1 {
			return StatusDone, a.False()
		}
		as[0] = a.StrRunes(s1[len(s2):])
		return StatusRewriteFull, a.Prefix(a.ConcatN(s.sort, as...), a.ConcatN(s.sort, bs[1:]...))
	}

	as, bs := rw.concatUnits(s), rw.concatUnits(t)
	var eqs []*Expr
	i := 0
	for ; i < len(as) && i < len(bs); i++ {
		x, y := as[i], bs[i]
		switch a.AreEqual(x, y) {
		case TruthTrue:
			continue
		case TruthFalse:
			return StatusDone, a.False()
		}
		if isUnit(x) && isUnit(y) {
			eqs = append(eqs, a.Eq(x, y))
			continue
		}
		break
	}

	if i == len(as) {
		return StatusRewrite3, a.And(eqs...)
	} else if i == len(bs) {
		for _, x := range as[i:] {
			eqs = append(eqs, a.Eq(x, a.Empty(x.sort)))
		}
		return StatusRewrite3, a.And(eqs...)
	} else if i > 0 {
		eqs = append(eqs, a.Prefix(a.ConcatN(s.sort, as[i:]...), a.ConcatN(s.sort, bs[i:]...)))
		return StatusRewrite3, a.And(eqs...)
	}
	return StatusFailed, nil
}

// mkSeqSuffix rewrites suffixof(s, t), true if s is a suffix of t.
func (rw *Rewriter) mkSeqSuffix(s, t *Expr) (Status, *Expr) {
	a := rw.arena
	if s == t || s.IsEmptySeq() {
		return StatusDone, a.True()
	} else if t.IsEmptySeq() {
		return StatusRewrite3, a.Eq(s, a.Empty(s.sort))
	}

	as, bs := rw.concatUnits(s), rw.concatUnits(t)
	sza, szb := len(as), len(bs)
	var eqs []*Expr
	i := 1
	for ; i <= sza && i <= szb; i++ {
		x, y := as[sza-i], bs[szb-i]
		switch a.AreEqual(x, y) {
		case TruthTrue:
			continue
		case TruthFalse:
			return StatusDone, a.False()
		}
		if isUnit(x) && isUnit(y) {
			eqs = append(eqs, a.Eq(x, y))
			continue
		}
		break
	}

	if i > sza {
		return StatusRewrite3, a.And(eqs...)
	} else if i > szb {
		for _, x := range as[:sza-i+1] {
			eqs = append(eqs, a.Eq(x, a.Empty(x.sort)))
		}
		return StatusRewrite3, a.And(eqs...)
	} else if i > 1 {
		eqs = append(eqs, a.Suffix(a.ConcatN(s.sort, as[:sza-i+1]...), a.ConcatN(s.sort, bs[:szb-i+1]...)))
		return StatusRewrite3, a.And(eqs...)
	}
	return StatusFailed, nil
}

func (rw *Rewriter) mkStrLe(s, t *Expr) (Status, *Expr) {
	a := rw.arena
	return StatusRewrite2, a.Not(a.StrLt(t, s))
}

func (rw *Rewriter) mkStrLt(s, t *Expr) (Status, *Expr) {
	s1, ok1 := s.StringValue()
	s2, ok2 := t.StringValue()
	if !ok1 || !ok2 {
		return StatusFailed, nil
	}
	return StatusDone, rw.arena.Bool(slices.Compare(s1, s2) < 0)
}

func (rw *Rewriter) mkStrFromCode(i *Expr) (Status, *Expr) {
	v, ok := i.IntValue()
	if !ok {
		return StatusFailed, nil
	} else if v < 0 || v > MaxChar {
		return StatusDone, rw.arena.Str("")
	}
	return StatusDone, rw.arena.StrRunes([]rune{rune(v)})
}

func (rw *Rewriter) mkStrToCode(s *Expr) (Status, *Expr) {
	runes, ok := s.StringValue()
	if !ok {
		return StatusFailed, nil
	} else if len(runes) != 1 {
		return StatusDone, rw.arena.Int(-1)
	}
	return StatusDone, rw.arena.Int(int64(runes[0]))
}

func (rw *Rewriter) mkStrIsDigit(s *Expr) (Status, *Expr) {
	runes, ok := s.StringValue()
	if !ok {
		return StatusFailed, nil
	}
	return StatusDone, rw.arena.Bool(len(runes) == 1 && isDigit(runes[0]))
}

func (rw *Rewriter) mkStrItoS(i *Expr) (Status, *Expr) {
	v, ok := i.IntValue()
	if !ok {
		return StatusFailed, nil
	} else if v < 0 {
		return StatusDone, rw.arena.Str("")
	}
	return StatusDone, rw.arena.Str(strconv.FormatInt(v, 10))
}

func isDigit(c rune) bool { return '0' <= c && c <= '9' }

// parseDecimal parses a non-empty string of decimal digits.
func parseDecimal(s []rune) (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	for _, c := range s {
		if !isDigit(c) {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// mkStrStoI rewrites str.to_int(s), the integer denoted by s or -1.
func (rw *Rewriter) mkStrStoI(s *Expr) (Status, *Expr) {
	a := rw.arena
	minusOne := a.Int(-1)

	if runes, ok := s.StringValue(); ok {
		for _, c := range runes {
			if !isDigit(c) {
				return StatusDone, minusOne
			}
		}
		v, ok := parseDecimal(runes)
		if len(runes) == 0 {
			return StatusDone, minusOne
		} else if !ok {
			return StatusFailed, nil
		}
		return StatusDone, a.Int(v)
	}

	switch s.op {
	case OpItoS:
		n := s.args[0]
		return StatusDone, a.Ite(a.Ge(n, a.Int(0)), n, minusOne)
	case OpIte:
		return StatusRewriteFull, a.Ite(s.args[0], a.StoI(s.args[1]), a.StoI(s.args[2]))
	}

	if c, ok := s.UnitChar(); ok {
		if isDigit(c) {
			return StatusDone, a.Int(int64(c - '0'))
		}
		return StatusDone, minusOne
	}

	as := rw.concatUnits(s)
	if len(as) == 0 {
		return StatusDone, minusOne
	} else if len(as) == 1 || !isUnit(as[len(as)-1]) {
		return StatusFailed, nil
	}

	// stoi(head ++ unit) = 10 * stoi(head) + stoi(unit) while both are digits
	tail := a.StoI(as[len(as)-1])
	head := a.ConcatN(s.sort, as[:len(as)-1]...)
	stoiHead := a.StoI(head)
	result := a.Ite(a.Ge(stoiHead, a.Int(0)), a.Add(a.Mul(a.Int(10), stoiHead), tail), minusOne)
	result = a.Ite(a.Ge(tail, a.Int(0)), result, tail)
	result = a.Ite(a.Eq(head, a.Empty(s.sort)), tail, result)
	return StatusRewriteFull, result
}
