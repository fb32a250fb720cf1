package seqre

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/bits-and-blooms/bitset"
)

// ExprEvaluator evaluates expressions using known variable values.
type ExprEvaluator struct {
	arena *Arena
	env   map[string]*Expr // mapping of variable name to value
	memo  map[*Expr]*Expr
}

// NewExprEvaluator returns a new instance of ExprEvaluator with the given
// variable/value mapping. Values must be constants.
func NewExprEvaluator(a *Arena, env map[string]*Expr) *ExprEvaluator {
	for name, v := range env {
		assert(v.IsValue() || v.op == OpConcat, "non-constant value for %s: %s", name, v)
	}
	return &ExprEvaluator{arena: a, env: env, memo: make(map[*Expr]*Expr)}
}

// Evaluate evaluates expr to a constant expression. Sequences evaluate to
// string literals or right-nested concatenations of units. Regexes
// evaluate to regexes over constant sequences. Returns an error if an
// unbound variable or an unspecified value is encountered.
func (ee *ExprEvaluator) Evaluate(expr *Expr) (*Expr, error) {
	if v, ok := ee.memo[expr]; ok {
		return v, nil
	}
	v, err := ee.evaluate(expr)
	if err != nil {
		return nil, err
	}
	ee.memo[expr] = v
	return v, nil
}

// evaluateArgs evaluates the arguments of expr.
func (ee *ExprEvaluator) evaluateArgs(expr *Expr) ([]*Expr, error) {
	args := make([]*Expr, len(expr.args))
	for i, arg := range expr.args {
		v, err := ee.Evaluate(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (ee *ExprEvaluator) evaluate(expr *Expr) (*Expr, error) {
	a := ee.arena
	switch expr.op {
	case OpTrue, OpFalse, OpInt, OpChar, OpString, OpSeqEmpty:
		return expr, nil
	case OpVar:
		v, ok := ee.env[expr.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundVar, expr.name)
		} else if v.sort.IsSeq() {
			return ee.seqValue(v.sort, ee.elemsOf(v)), nil
		}
		return v, nil
	case OpBoundVar:
		return nil, fmt.Errorf("%w: bound variable", ErrUnboundVar)

	case OpIte:
		// Only the selected branch is evaluated.
		cond, err := ee.Evaluate(expr.args[0])
		if err != nil {
			return nil, err
		} else if cond.IsTrue() {
			return ee.Evaluate(expr.args[1])
		}
		return ee.Evaluate(expr.args[2])
	}

	if expr.sort.IsRe() {
		return ee.evaluateRe(expr)
	}

	args, err := ee.evaluateArgs(expr)
	if err != nil {
		return nil, err
	}

	switch expr.op {
	case OpEq:
		if expr.args[0].sort.IsRe() {
			return nil, fmt.Errorf("%w: regex equality", ErrNotSupported)
		}
		// Values are canonical.
		return a.Bool(args[0] == args[1]), nil

	case OpNot, OpAnd, OpOr, OpAdd, OpMul, OpLe, OpCharLe:
		// Constructors fold constant arguments.
		v := a.App(expr.op, expr.params, args...)
		assert(v.IsValue(), "%s: not folded: %s", expr.op, v)
		return v, nil

	case OpUnit, OpConcat:
		return ee.seqValue(expr.sort, ee.elemsOf(a.App(expr.op, nil, args...))), nil

	case OpLength:
		return a.Int(int64(len(ee.elemsOf(args[0])))), nil

	case OpExtract:
		s := ee.elemsOf(args[0])
		i, n := intValue(args[1]), intValue(args[2])
		if i < 0 || i >= int64(len(s)) || n <= 0 {
			return a.Empty(expr.sort), nil
		}
		return ee.seqValue(expr.sort, s[i:min(int64(len(s)), i+n)]), nil

	case OpContains:
		return a.Bool(indexSlice(ee.elemsOf(args[0]), ee.elemsOf(args[1]), 0) >= 0), nil

	case OpAt:
		s, i := ee.elemsOf(args[0]), intValue(args[1])
		if i < 0 || i >= int64(len(s)) {
			return a.Empty(expr.sort), nil
		}
		return ee.seqValue(expr.sort, s[i:i+1]), nil

	case OpNth, OpNthI, OpNthU:
		s, i := ee.elemsOf(args[0]), intValue(args[1])
		if i < 0 || i >= int64(len(s)) {
			return nil, fmt.Errorf("%w: %s out of bounds", ErrNotSupported, expr.op)
		}
		return s[i], nil

	case OpIndex:
		from := int64(0)
		if len(args) == 3 {
			from = intValue(args[2])
		}
		s := ee.elemsOf(args[0])
		if from < 0 || from > int64(len(s)) {
			return a.Int(-1), nil
		}
		return a.Int(int64(indexSlice(s, ee.elemsOf(args[1]), int(from)))), nil

	case OpLastIndex:
		return a.Int(int64(lastIndexSlice(ee.elemsOf(args[0]), ee.elemsOf(args[1])))), nil

	case OpReplace:
		s, t, u := ee.elemsOf(args[0]), ee.elemsOf(args[1]), ee.elemsOf(args[2])
		return ee.seqValue(expr.sort, replaceSlice(s, t, u)), nil

	case OpReplaceAll:
		s, t, u := ee.elemsOf(args[0]), ee.elemsOf(args[1]), ee.elemsOf(args[2])
		if len(t) == 0 {
			return args[0], nil
		}
		var result []*Expr
		for {
			i := indexSlice(s, t, 0)
			if i < 0 {
				break
			}
			result = append(append(result, s[:i]...), u...)
			s = s[i+len(t):]
		}
		return ee.seqValue(expr.sort, append(result, s...)), nil

	case OpReplaceRe, OpReplaceReAll:
		return ee.replaceRe(expr.sort, ee.elemsOf(args[0]), args[1], ee.elemsOf(args[2]), expr.op == OpReplaceReAll)

	case OpPrefix:
		s, t := ee.elemsOf(args[0]), ee.elemsOf(args[1])
		return a.Bool(len(s) <= len(t) && slices.Equal(s, t[:len(s)])), nil
	case OpSuffix:
		s, t := ee.elemsOf(args[0]), ee.elemsOf(args[1])
		return a.Bool(len(s) <= len(t) && slices.Equal(s, t[len(t)-len(s):])), nil

	case OpInRe:
		s := ee.elemsOf(args[0])
		ends, err := ee.matcher(s).ends(args[1], 0)
		if err != nil {
			return nil, err
		}
		return a.Bool(ends.Test(uint(len(s)))), nil

	case OpStoI:
		runes, _ := args[0].StringValue()
		if len(runes) == 0 || slices.ContainsFunc(runes, func(c rune) bool { return !isDigit(c) }) {
			return a.Int(-1), nil
		}
		v, ok := parseDecimal(runes)
		if !ok {
			return nil, fmt.Errorf("%w: integer overflow: %q", ErrNotSupported, string(runes))
		}
		return a.Int(v), nil

	case OpItoS:
		v := intValue(args[0])
		if v < 0 {
			return a.Str(""), nil
		}
		return a.Str(strconv.FormatInt(v, 10)), nil

	case OpToCode:
		if runes, _ := args[0].StringValue(); len(runes) == 1 {
			return a.Int(int64(runes[0])), nil
		}
		return a.Int(-1), nil

	case OpFromCode:
		if v := intValue(args[0]); v >= 0 && v <= MaxChar {
			return a.StrRunes([]rune{rune(v)}), nil
		}
		return a.Str(""), nil

	case OpIsDigit:
		runes, _ := args[0].StringValue()
		return a.Bool(len(runes) == 1 && isDigit(runes[0])), nil

	case OpStrLt, OpStrLe:
		s, _ := args[0].StringValue()
		t, _ := args[1].StringValue()
		cmp := slices.Compare(s, t)
		return a.Bool(cmp < 0 || (cmp == 0 && expr.op == OpStrLe)), nil

	default:
		return nil, fmt.Errorf("%w: cannot evaluate %s", ErrNotSupported, expr.op)
	}
}

// evaluateRe evaluates the sequence and bound arguments of a regex.
// Loops with term bounds evaluate to loops with constant bounds.
func (ee *ExprEvaluator) evaluateRe(expr *Expr) (*Expr, error) {
	a := ee.arena
	switch expr.op {
	case OpReOfPred:
		return expr, nil
	case OpReLoop:
		if len(expr.params) > 0 {
			break
		}
		body, err := ee.Evaluate(expr.args[0])
		if err != nil {
			return nil, err
		}
		lo, err := ee.Evaluate(expr.args[1])
		if err != nil {
			return nil, err
		}
		if len(expr.args) == 2 {
			return a.ReLoopFrom(body, max(int(intValue(lo)), 0)), nil
		}
		hi, err := ee.Evaluate(expr.args[2])
		if err != nil {
			return nil, err
		}
		return a.ReLoop(body, max(int(intValue(lo)), 0), max(int(intValue(hi)), 0)), nil
	}

	args, err := ee.evaluateArgs(expr)
	if err != nil {
		return nil, err
	}
	return a.Rebuild(expr, args), nil
}

// replaceRe replaces the leftmost shortest non-empty match of r in s by u,
// or every such match if all is set.
func (ee *ExprEvaluator) replaceRe(sort Sort, s []*Expr, r *Expr, u []*Expr, all bool) (*Expr, error) {
	m := ee.matcher(s)
	var result []*Expr
	i := 0
	for k := 0; k < len(s); {
		ends, err := m.ends(r, k)
		if err != nil {
			return nil, err
		}
		j, ok := ends.NextSet(uint(k + 1))
		if !ok {
			k++
			continue
		}
		result = append(append(result, s[i:k]...), u...)
		i, k = int(j), int(j)
		if !all {
			break
		}
	}
	return ee.seqValue(sort, append(result, s[i:]...)), nil
}

// elems returns the element values of each operand of a constant sequence.
func (ee *ExprEvaluator) elems(s *Expr) [][]*Expr {
	var result [][]*Expr
	for _, e := range flattenConcat(s) {
		result = append(result, ee.elemsOf(e))
	}
	return result
}

// elemsOf returns the element values of a constant sequence.
func (ee *ExprEvaluator) elemsOf(s *Expr) []*Expr {
	if runes, ok := s.StringValue(); ok {
		es := make([]*Expr, len(runes))
		for i, c := range runes {
			es[i] = ee.arena.Char(c)
		}
		return es
	} else if s.op == OpUnit {
		return []*Expr{s.args[0]}
	}
	return slices.Concat(ee.elems(s)...)
}

// seqValue returns the constant sequence of the elements es.
func (ee *ExprEvaluator) seqValue(sort Sort, es []*Expr) *Expr {
	a := ee.arena
	if sort.IsString() {
		runes := make([]rune, len(es))
		for i, e := range es {
			runes[i], _ = e.CharValue()
		}
		return a.StrRunes(runes)
	}
	units := make([]*Expr, len(es))
	for i, e := range es {
		units[i] = a.Unit(e)
	}
	return a.ConcatN(sort, units...)
}

func intValue(e *Expr) int64 {
	v, ok := e.IntValue()
	assert(ok, "non-integer value: %s", e)
	return v
}

// reMatcher computes the end positions of the matches of regexes starting
// at a given position of a constant sequence.
type reMatcher struct {
	ee   *ExprEvaluator
	s    []*Expr
	memo map[reMatchKey]*bitset.BitSet
}

type reMatchKey struct {
	r *Expr
	i int
}

func (ee *ExprEvaluator) matcher(s []*Expr) *reMatcher {
	return &reMatcher{ee: ee, s: s, memo: make(map[reMatchKey]*bitset.BitSet)}
}

func (m *reMatcher) newSet() *bitset.BitSet {
	return bitset.New(uint(len(m.s) + 1))
}

// accepts returns true if the sequence s is in the language of r.
func (m *reMatcher) accepts(r *Expr, s []*Expr) (bool, error) {
	ends, err := m.ee.matcher(s).ends(r, 0)
	if err != nil {
		return false, err
	}
	return ends.Test(uint(len(s))), nil
}

// ends returns the positions j such that s[i:j] is in the language of r.
// The returned set must not be modified.
func (m *reMatcher) ends(r *Expr, i int) (*bitset.BitSet, error) {
	key := reMatchKey{r: r, i: i}
	if set, ok := m.memo[key]; ok {
		return set, nil
	}
	set, err := m.match(r, i)
	if err != nil {
		return nil, err
	}
	m.memo[key] = set
	return set, nil
}

// step returns the end positions of matches of r starting at any of starts.
func (m *reMatcher) step(r *Expr, starts *bitset.BitSet) (*bitset.BitSet, error) {
	result := m.newSet()
	for j, ok := starts.NextSet(0); ok; j, ok = starts.NextSet(j + 1) {
		ends, err := m.ends(r, int(j))
		if err != nil {
			return nil, err
		}
		result.InPlaceUnion(ends)
	}
	return result, nil
}

// closure returns the positions reachable from starts by zero or more
// matches of r.
func (m *reMatcher) closure(r *Expr, starts *bitset.BitSet) (*bitset.BitSet, error) {
	result := starts.Clone()
	frontier := starts
	for frontier.Any() {
		next, err := m.step(r, frontier)
		if err != nil {
			return nil, err
		}
		frontier = next.Difference(result)
		result.InPlaceUnion(frontier)
	}
	return result, nil
}

func (m *reMatcher) match(r *Expr, i int) (*bitset.BitSet, error) {
	n := len(m.s)
	result := m.newSet()
	single := func(ok bool) *bitset.BitSet {
		if ok && i < n {
			result.Set(uint(i + 1))
		}
		return result
	}

	switch r.op {
	case OpReEmpty:
		return result, nil
	case OpReFull:
		for j := i; j <= n; j++ {
			result.Set(uint(j))
		}
		return result, nil
	case OpReAllChar:
		return single(true), nil

	case OpToRe:
		t := m.ee.elemsOf(r.args[0])
		if i+len(t) <= n && slices.Equal(m.s[i:i+len(t)], t) {
			result.Set(uint(i + len(t)))
		}
		return result, nil

	case OpReRange:
		lo, _ := r.args[0].StringValue()
		hi, _ := r.args[1].StringValue()
		if len(lo) != 1 || len(hi) != 1 || i >= n {
			return result, nil
		}
		c, _ := m.s[i].CharValue()
		return single(lo[0] <= c && c <= hi[0]), nil

	case OpReOfPred:
		if i >= n {
			return result, nil
		}
		v, err := m.ee.Evaluate(m.ee.arena.Subst(r.args[0], m.s[i]))
		if err != nil {
			return nil, err
		}
		return single(v.IsTrue()), nil

	case OpIte:
		cond, err := m.ee.Evaluate(r.args[0])
		if err != nil {
			return nil, err
		} else if cond.IsTrue() {
			return m.ends(r.args[1], i)
		}
		return m.ends(r.args[2], i)

	case OpReConcat:
		starts, err := m.ends(r.args[0], i)
		if err != nil {
			return nil, err
		}
		return m.step(r.args[1], starts)

	case OpReUnion, OpReInter, OpReDiff:
		x, err := m.ends(r.args[0], i)
		if err != nil {
			return nil, err
		}
		y, err := m.ends(r.args[1], i)
		if err != nil {
			return nil, err
		}
		switch r.op {
		case OpReUnion:
			return x.Union(y), nil
		case OpReInter:
			return x.Intersection(y), nil
		default:
			return x.Difference(y), nil
		}

	case OpReComplement:
		x, err := m.ends(r.args[0], i)
		if err != nil {
			return nil, err
		}
		for j := i; j <= n; j++ {
			if !x.Test(uint(j)) {
				result.Set(uint(j))
			}
		}
		return result, nil

	case OpReStar, OpRePlus, OpReOpt:
		result.Set(uint(i))
		if r.op == OpReOpt {
			x, err := m.ends(r.args[0], i)
			if err != nil {
				return nil, err
			}
			return result.Union(x), nil
		} else if r.op == OpRePlus {
			x, err := m.ends(r.args[0], i)
			if err != nil {
				return nil, err
			}
			return m.closure(r.args[0], x)
		}
		return m.closure(r.args[0], result)

	case OpReLoop, OpRePower:
		lo, hi, bounded, ok := loopBounds(r)
		if !ok {
			return nil, fmt.Errorf("%w: loop bounds of %s", ErrNotSupported, r)
		}
		return m.loop(r.args[0], i, lo, hi, bounded)

	case OpReReverse:
		for j := i; j <= n; j++ {
			w := slices.Clone(m.s[i:j])
			slices.Reverse(w)
			ok, err := m.accepts(r.args[0], w)
			if err != nil {
				return nil, err
			} else if ok {
				result.Set(uint(j))
			}
		}
		return result, nil

	case OpReDerivative:
		for j := i; j <= n; j++ {
			w := append([]*Expr{r.args[0]}, m.s[i:j]...)
			ok, err := m.accepts(r.args[1], w)
			if err != nil {
				return nil, err
			} else if ok {
				result.Set(uint(j))
			}
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: cannot match %s", ErrNotSupported, r.op)
}

// loop returns the end positions of between lo and hi matches of r. Only
// the first len(s)+1 iterations can reach new positions.
func (m *reMatcher) loop(r *Expr, i, lo, hi int, bounded bool) (*bitset.BitSet, error) {
	if bounded && lo > hi {
		return m.newSet(), nil
	}
	limit := len(m.s) + 1
	cur := m.newSet()
	cur.Set(uint(i))

	if lo > limit {
		x, err := m.ends(r, i)
		if err != nil {
			return nil, err
		} else if !x.Test(uint(i)) {
			return m.newSet(), nil
		}
		lo = limit
	}
	for k := 0; k < lo; k++ {
		next, err := m.step(r, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if !bounded {
		return m.closure(r, cur)
	}

	result := cur.Clone()
	for k := lo; k < min(hi, lo+limit); k++ {
		next, err := m.step(r, cur)
		if err != nil {
			return nil, err
		} else if next.Equal(cur) {
			break
		}
		cur = next
		result.InPlaceUnion(cur)
	}
	return result, nil
}
