package seqre

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SortKind represents the kind of a sort.
type SortKind int

// Sort kinds.
const (
	KindBool SortKind = iota + 1
	KindInt
	KindChar
	KindSeq
	KindRe
)

// Sort represents the sort of an expression. Sequence and regex sorts
// carry the kind of their elements.
type Sort struct {
	Kind SortKind
	Elem SortKind
}

// Standard sorts.
var (
	SortBool   = Sort{Kind: KindBool}
	SortInt    = Sort{Kind: KindInt}
	SortChar   = Sort{Kind: KindChar}
	SortString = Sort{Kind: KindSeq, Elem: KindChar}
	SortRegLan = Sort{Kind: KindRe, Elem: KindChar}
)

// SeqSort returns the sort of sequences over elem.
func SeqSort(elem Sort) Sort {
	assert(elem.Elem == 0 && elem.Kind != KindSeq && elem.Kind != KindRe, "invalid sequence element sort: %s", elem)
	return Sort{Kind: KindSeq, Elem: elem.Kind}
}

// ReSort returns the sort of regular expressions over seq.
func ReSort(seq Sort) Sort {
	assert(seq.IsSeq(), "regex over non-sequence sort: %s", seq)
	return Sort{Kind: KindRe, Elem: seq.Elem}
}

// IsSeq returns true if s is a sequence sort.
func (s Sort) IsSeq() bool { return s.Kind == KindSeq }

// IsRe returns true if s is a regex sort.
func (s Sort) IsRe() bool { return s.Kind == KindRe }

// IsString returns true if s is the sort of character sequences.
func (s Sort) IsString() bool { return s == SortString }

// ElemSort returns the element sort of a sequence or regex sort.
func (s Sort) ElemSort() Sort {
	assert(s.IsSeq() || s.IsRe(), "no element sort: %s", s)
	return Sort{Kind: s.Elem}
}

// SeqSort returns the sequence sort a regex sort is defined over.
func (s Sort) SeqSort() Sort {
	assert(s.IsRe(), "not a regex sort: %s", s)
	return Sort{Kind: KindSeq, Elem: s.Elem}
}

// String returns the string representation of the sort.
func (s Sort) String() string {
	switch s.Kind {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindChar:
		return "Char"
	case KindSeq:
		if s.Elem == KindChar {
			return "String"
		}
		return fmt.Sprintf("(Seq %s)", Sort{Kind: s.Elem})
	case KindRe:
		if s.Elem == KindChar {
			return "RegLan"
		}
		return fmt.Sprintf("(RegEx %s)", s.SeqSort())
	default:
		return fmt.Sprintf("Sort<%d>", s.Kind)
	}
}

// Op represents the operator of an expression.
type Op int

// Expression operators.
const (
	op_begin = Op(iota)

	core_op_begin
	OpTrue
	OpFalse
	OpInt
	OpChar
	OpVar
	OpBoundVar
	OpNot
	OpAnd
	OpOr
	OpEq
	OpIte
	OpAdd
	OpMul
	OpLe
	OpCharLe
	core_op_end

	seq_op_begin
	OpSeqEmpty
	OpString
	OpUnit
	OpConcat
	OpLength
	OpExtract
	OpContains
	OpAt
	OpNth
	OpNthI
	OpNthU
	OpIndex
	OpLastIndex
	OpReplace
	OpReplaceAll
	OpReplaceRe
	OpReplaceReAll
	OpPrefix
	OpSuffix
	OpInRe
	OpStoI
	OpItoS
	OpToCode
	OpFromCode
	OpIsDigit
	OpStrLt
	OpStrLe
	seq_op_end

	re_op_begin
	OpReEmpty
	OpReFull
	OpReAllChar
	OpToRe
	OpReConcat
	OpReUnion
	OpReInter
	OpReDiff
	OpReComplement
	OpReStar
	OpRePlus
	OpReOpt
	OpReLoop
	OpRePower
	OpReRange
	OpReReverse
	OpReOfPred
	OpReDerivative
	re_op_end

	// Keys for memoized internal computations. Never appear in terms.
	opIsNullable
	op_end
)

var ops = [...]string{
	OpTrue:         "true",
	OpFalse:        "false",
	OpInt:          "int",
	OpChar:         "char",
	OpVar:          "var",
	OpBoundVar:     ":var",
	OpNot:          "not",
	OpAnd:          "and",
	OpOr:           "or",
	OpEq:           "=",
	OpIte:          "ite",
	OpAdd:          "+",
	OpMul:          "*",
	OpLe:           "<=",
	OpCharLe:       "char.<=",
	OpSeqEmpty:     "seq.empty",
	OpString:       "str",
	OpUnit:         "seq.unit",
	OpConcat:       "seq.++",
	OpLength:       "seq.len",
	OpExtract:      "seq.extract",
	OpContains:     "seq.contains",
	OpAt:           "seq.at",
	OpNth:          "seq.nth",
	OpNthI:         "seq.nth_i",
	OpNthU:         "seq.nth_u",
	OpIndex:        "seq.indexof",
	OpLastIndex:    "seq.last_indexof",
	OpReplace:      "seq.replace",
	OpReplaceAll:   "seq.replace_all",
	OpReplaceRe:    "seq.replace_re",
	OpReplaceReAll: "seq.replace_re_all",
	OpPrefix:       "seq.prefixof",
	OpSuffix:       "seq.suffixof",
	OpInRe:         "seq.in_re",
	OpStoI:         "str.to_int",
	OpItoS:         "str.from_int",
	OpToCode:       "str.to_code",
	OpFromCode:     "str.from_code",
	OpIsDigit:      "str.is_digit",
	OpStrLt:        "str.<",
	OpStrLe:        "str.<=",
	OpReEmpty:      "re.none",
	OpReFull:       "re.all",
	OpReAllChar:    "re.allchar",
	OpToRe:         "seq.to_re",
	OpReConcat:     "re.++",
	OpReUnion:      "re.union",
	OpReInter:      "re.inter",
	OpReDiff:       "re.diff",
	OpReComplement: "re.comp",
	OpReStar:       "re.*",
	OpRePlus:       "re.+",
	OpReOpt:        "re.opt",
	OpReLoop:       "re.loop",
	OpRePower:      "re.^",
	OpReRange:      "re.range",
	OpReReverse:    "re.reverse",
	OpReOfPred:     "re.of_pred",
	OpReDerivative: "re.derivative",
	opIsNullable:   "re.nullable",
}

// String returns the string representation of the operator.
func (op Op) String() string {
	if op >= 0 && op < Op(len(ops)) && ops[op] != "" {
		return ops[op]
	}
	return fmt.Sprintf("Op<%d>", op)
}

// IsSeq returns true if op is a sequence operator.
func (op Op) IsSeq() bool {
	return op > seq_op_begin && op < seq_op_end
}

// IsRe returns true if op is a regex operator.
func (op Op) IsRe() bool {
	return op > re_op_begin && op < re_op_end
}

// isValid returns true if op may appear in a term.
func (op Op) isValid() bool {
	return (op > core_op_begin && op < core_op_end) || op.IsSeq() || op.IsRe()
}

// Expr represents an interned, immutable expression. Two expressions built
// by the same Arena are structurally equal if and only if they are the
// same pointer.
type Expr struct {
	id     int
	op     Op
	sort   Sort
	args   []*Expr
	params []int
	value  int64  // integer and character constants
	runes  []rune // string literals
	name   string // variables
}

// ID returns the identifier of the expression within its arena. Later
// expressions have larger identifiers.
func (e *Expr) ID() int { return e.id }

// Op returns the operator of the expression.
func (e *Expr) Op() Op { return e.op }

// Sort returns the sort of the expression.
func (e *Expr) Sort() Sort { return e.sort }

// Args returns the arguments of the expression. The slice must not be modified.
func (e *Expr) Args() []*Expr { return e.args }

// Arg returns the i-th argument of the expression.
func (e *Expr) Arg(i int) *Expr { return e.args[i] }

// NumArgs returns the number of arguments.
func (e *Expr) NumArgs() int { return len(e.args) }

// Params returns the integer parameters of the expression, such as loop bounds.
func (e *Expr) Params() []int { return e.params }

// Name returns the name of a variable.
func (e *Expr) Name() string { return e.name }

// Is returns true if the expression has the given operator.
func (e *Expr) Is(op Op) bool { return e.op == op }

// IsTrue returns true if e is the constant true.
func (e *Expr) IsTrue() bool { return e.op == OpTrue }

// IsFalse returns true if e is the constant false.
func (e *Expr) IsFalse() bool { return e.op == OpFalse }

// IntValue returns the value of an integer constant.
func (e *Expr) IntValue() (int64, bool) {
	if e.op != OpInt {
		return 0, false
	}
	return e.value, true
}

// CharValue returns the value of a character constant.
func (e *Expr) CharValue() (rune, bool) {
	if e.op != OpChar {
		return 0, false
	}
	return rune(e.value), true
}

// StringValue returns the characters of a string literal.
func (e *Expr) StringValue() ([]rune, bool) {
	if e.op != OpString {
		return nil, false
	}
	return e.runes, true
}

// UnitChar returns the character of a unit sequence over a constant character.
func (e *Expr) UnitChar() (rune, bool) {
	if e.op != OpUnit {
		return 0, false
	}
	return e.args[0].CharValue()
}

// IsEmptySeq returns true if e is the empty sequence.
func (e *Expr) IsEmptySeq() bool {
	return e.op == OpSeqEmpty || (e.op == OpString && len(e.runes) == 0)
}

// IsValue returns true if e is a constant with a known value.
func (e *Expr) IsValue() bool {
	switch e.op {
	case OpTrue, OpFalse, OpInt, OpChar, OpString, OpSeqEmpty:
		return true
	case OpUnit:
		return e.args[0].IsValue()
	default:
		return false
	}
}

// IsGround returns true if e contains no free or bound variables.
func (e *Expr) IsGround() bool {
	ground := true
	WalkExpr(visitorFunc(func(e *Expr) bool {
		if e.op == OpVar || e.op == OpBoundVar {
			ground = false
		}
		return ground
	}), e)
	return ground
}

// String returns the string representation of the expression.
func (e *Expr) String() string {
	var buf strings.Builder
	e.write(&buf)
	return buf.String()
}

func (e *Expr) write(buf *strings.Builder) {
	switch e.op {
	case OpTrue, OpFalse:
		buf.WriteString(e.op.String())
	case OpInt:
		buf.WriteString(strconv.FormatInt(e.value, 10))
	case OpChar:
		fmt.Fprintf(buf, "(char %d)", e.value)
	case OpVar:
		buf.WriteString(e.name)
	case OpString:
		buf.WriteString(strconv.Quote(string(e.runes)))
	case OpSeqEmpty, OpReEmpty, OpReFull, OpReAllChar:
		buf.WriteString(e.op.String())
	default:
		buf.WriteByte('(')
		buf.WriteString(e.op.String())
		for _, p := range e.params {
			buf.WriteByte(' ')
			buf.WriteString(strconv.Itoa(p))
		}
		for _, arg := range e.args {
			buf.WriteByte(' ')
			arg.write(buf)
		}
		buf.WriteByte(')')
	}
}

// CompareExpr returns an integer comparing two expressions by identifier.
func CompareExpr(a, b *Expr) int {
	if a.id < b.id {
		return -1
	} else if a.id > b.id {
		return 1
	}
	return 0
}

// Arena owns and interns all expressions of one solving context.
// An Arena is not safe for concurrent use.
type Arena struct {
	nodes []*Expr
	table map[uint64][]*Expr
	buf   []byte
	fresh int
}

// NewArena returns a new, empty arena.
func NewArena() *Arena {
	return &Arena{table: make(map[uint64][]*Expr)}
}

// Len returns the number of distinct expressions in the arena.
func (a *Arena) Len() int { return len(a.nodes) }

// intern returns the shared node structurally equal to n, adding n if needed.
func (a *Arena) intern(n *Expr) *Expr {
	h := a.hash(n)
	for _, other := range a.table[h] {
		if n.equal(other) {
			return other
		}
	}
	n.id = len(a.nodes)
	a.nodes = append(a.nodes, n)
	a.table[h] = append(a.table[h], n)
	return n
}

func (a *Arena) hash(n *Expr) uint64 {
	buf := a.buf[:0]
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.op))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.sort.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n.sort.Elem))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(n.value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n.params)))
	for _, p := range n.params {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(p))
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n.runes)))
	for _, r := range n.runes {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}
	buf = append(buf, n.name...)
	for _, arg := range n.args {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(arg.id))
	}
	a.buf = buf
	return xxhash.Sum64(buf)
}

func (e *Expr) equal(other *Expr) bool {
	if e.op != other.op || e.sort != other.sort || e.value != other.value || e.name != other.name {
		return false
	} else if !slices.Equal(e.params, other.params) || !slices.Equal(e.runes, other.runes) {
		return false
	} else if len(e.args) != len(other.args) {
		return false
	}
	for i := range e.args {
		if e.args[i] != other.args[i] {
			return false
		}
	}
	return true
}

// mk interns an application of op.
func (a *Arena) mk(op Op, sort Sort, params []int, args ...*Expr) *Expr {
	return a.intern(&Expr{op: op, sort: sort, params: slices.Clone(params), args: slices.Clone(args)})
}

// True returns the constant true.
func (a *Arena) True() *Expr { return a.intern(&Expr{op: OpTrue, sort: SortBool}) }

// False returns the constant false.
func (a *Arena) False() *Expr { return a.intern(&Expr{op: OpFalse, sort: SortBool}) }

// Bool returns the boolean constant v.
func (a *Arena) Bool(v bool) *Expr {
	if v {
		return a.True()
	}
	return a.False()
}

// Int returns the integer constant v.
func (a *Arena) Int(v int64) *Expr {
	return a.intern(&Expr{op: OpInt, sort: SortInt, value: v})
}

// Char returns the character constant c.
func (a *Arena) Char(c rune) *Expr {
	assert(c >= 0 && c <= MaxChar, "character out of range: %d", c)
	return a.intern(&Expr{op: OpChar, sort: SortChar, value: int64(c)})
}

// Var returns the free variable with the given name and sort.
func (a *Arena) Var(name string, sort Sort) *Expr {
	return a.intern(&Expr{op: OpVar, sort: sort, name: name})
}

// Fresh returns a variable that has not been returned by the arena before.
func (a *Arena) Fresh(prefix string, sort Sort) *Expr {
	for {
		a.fresh++
		name := prefix + "!" + strconv.Itoa(a.fresh)
		n := len(a.nodes)
		if v := a.Var(name, sort); len(a.nodes) > n {
			return v
		}
	}
}

// BoundVar returns the bound variable used by predicates of re.of_pred.
func (a *Arena) BoundVar(sort Sort) *Expr {
	return a.mk(OpBoundVar, sort, []int{0})
}

// Not returns the negation of x.
func (a *Arena) Not(x *Expr) *Expr {
	assert(x.sort == SortBool, "not: non-boolean argument: %s", x.sort)
	switch x.op {
	case OpTrue:
		return a.False()
	case OpFalse:
		return a.True()
	case OpNot:
		return x.args[0]
	}
	return a.mk(OpNot, SortBool, nil, x)
}

// And returns the conjunction of args.
func (a *Arena) And(args ...*Expr) *Expr {
	return a.junction(OpAnd, args)
}

// Or returns the disjunction of args.
func (a *Arena) Or(args ...*Expr) *Expr {
	return a.junction(OpOr, args)
}

// junction builds a flattened conjunction or disjunction, dropping neutral
// and duplicate arguments.
func (a *Arena) junction(op Op, args []*Expr) *Expr {
	unit, zero := a.True(), a.False()
	if op == OpOr {
		unit, zero = zero, unit
	}

	var flat []*Expr
	seen := make(map[*Expr]bool)
	stack := slices.Clone(args)
	slices.Reverse(stack)
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		assert(x.sort == SortBool, "%s: non-boolean argument: %s", op, x.sort)

		switch {
		case x == unit:
			continue
		case x == zero:
			return zero
		case x.op == op:
			for i := len(x.args) - 1; i >= 0; i-- {
				stack = append(stack, x.args[i])
			}
			continue
		case seen[x]:
			continue
		}
		if seen[a.Not(x)] {
			return zero
		}
		seen[x] = true
		flat = append(flat, x)
	}

	switch len(flat) {
	case 0:
		return unit
	case 1:
		return flat[0]
	}
	return a.mk(op, SortBool, nil, flat...)
}

// Implies returns the implication x => y.
func (a *Arena) Implies(x, y *Expr) *Expr {
	return a.Or(a.Not(x), y)
}

// Eq returns the equality of x and y.
func (a *Arena) Eq(x, y *Expr) *Expr {
	assert(x.sort == y.sort, "=: sort mismatch: %s != %s", x.sort, y.sort)

	switch a.AreEqual(x, y) {
	case TruthTrue:
		return a.True()
	case TruthFalse:
		return a.False()
	}

	if x.sort == SortBool {
		switch {
		case x.IsTrue():
			return y
		case y.IsTrue():
			return x
		case x.IsFalse():
			return a.Not(y)
		case y.IsFalse():
			return a.Not(x)
		}
	}
	return a.mk(OpEq, SortBool, nil, x, y)
}

// Ite returns the if-then-else expression over cond.
func (a *Arena) Ite(cond, t, e *Expr) *Expr {
	assert(cond.sort == SortBool, "ite: non-boolean condition: %s", cond.sort)
	assert(t.sort == e.sort, "ite: sort mismatch: %s != %s", t.sort, e.sort)

	switch {
	case cond.IsTrue():
		return t
	case cond.IsFalse():
		return e
	case t == e:
		return t
	}

	if t.sort == SortBool {
		switch {
		case t.IsTrue() && e.IsFalse():
			return cond
		case t.IsFalse() && e.IsTrue():
			return a.Not(cond)
		case t.IsTrue():
			return a.Or(cond, e)
		case e.IsFalse():
			return a.And(cond, t)
		case t.IsFalse():
			return a.And(a.Not(cond), e)
		case e.IsTrue():
			return a.Or(a.Not(cond), t)
		}
	}
	return a.mk(OpIte, t.sort, nil, cond, t, e)
}

// Add returns the sum of args. Constants are summed and moved to the front.
func (a *Arena) Add(args ...*Expr) *Expr {
	var sum int64
	var terms []*Expr
	stack := slices.Clone(args)
	slices.Reverse(stack)
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		assert(x.sort == SortInt, "+: non-integer argument: %s", x.sort)

		if v, ok := x.IntValue(); ok {
			sum += v
		} else if x.op == OpAdd {
			for i := len(x.args) - 1; i >= 0; i-- {
				stack = append(stack, x.args[i])
			}
		} else {
			terms = append(terms, x)
		}
	}

	if sum != 0 || len(terms) == 0 {
		terms = append([]*Expr{a.Int(sum)}, terms...)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return a.mk(OpAdd, SortInt, nil, terms...)
}

// Sub returns the difference x - y.
func (a *Arena) Sub(x, y *Expr) *Expr {
	return a.Add(x, a.Mul(a.Int(-1), y))
}

// Mul returns the product of x and y.
func (a *Arena) Mul(x, y *Expr) *Expr {
	assert(x.sort == SortInt && y.sort == SortInt, "*: non-integer argument: %s, %s", x.sort, y.sort)

	// Move constant expression to left hand side.
	if _, ok := y.IntValue(); ok {
		if _, ok := x.IntValue(); !ok {
			x, y = y, x
		}
	}

	if v, ok := x.IntValue(); ok {
		if w, ok := y.IntValue(); ok {
			return a.Int(v * w)
		} else if v == 0 {
			return x
		} else if v == 1 {
			return y
		} else if y.op == OpMul {
			if w, ok := y.args[0].IntValue(); ok { // X * (Y*z) == (X*Y) * z
				return a.Mul(a.Int(v*w), y.args[1])
			}
		}
	}
	return a.mk(OpMul, SortInt, nil, x, y)
}

// Le returns the integer comparison x <= y.
func (a *Arena) Le(x, y *Expr) *Expr {
	assert(x.sort == SortInt && y.sort == SortInt, "<=: non-integer argument: %s, %s", x.sort, y.sort)
	if v, ok := x.IntValue(); ok {
		if w, ok := y.IntValue(); ok {
			return a.Bool(v <= w)
		}
	}
	if x == y {
		return a.True()
	}
	return a.mk(OpLe, SortBool, nil, x, y)
}

// Ge returns the integer comparison x >= y.
func (a *Arena) Ge(x, y *Expr) *Expr { return a.Le(y, x) }

// Lt returns the integer comparison x < y.
func (a *Arena) Lt(x, y *Expr) *Expr { return a.Not(a.Le(y, x)) }

// Gt returns the integer comparison x > y.
func (a *Arena) Gt(x, y *Expr) *Expr { return a.Not(a.Le(x, y)) }

// CharLe returns the character comparison x <= y.
func (a *Arena) CharLe(x, y *Expr) *Expr {
	assert(x.sort == SortChar && y.sort == SortChar, "char.<=: non-character argument: %s, %s", x.sort, y.sort)
	if v, ok := x.CharValue(); ok {
		if w, ok := y.CharValue(); ok {
			return a.Bool(v <= w)
		}
	}
	if x == y {
		return a.True()
	}
	return a.mk(OpCharLe, SortBool, nil, x, y)
}

// AreEqual reports whether x and y always, never or possibly denote the same value.
func (a *Arena) AreEqual(x, y *Expr) Truth {
	if x == y {
		return TruthTrue
	} else if !x.IsValue() || !y.IsValue() {
		return TruthUnknown
	}

	if x.sort.IsString() {
		xs, _ := literalRunes(x)
		ys, _ := literalRunes(y)
		if slices.Equal(xs, ys) {
			return TruthTrue
		}
		return TruthFalse
	} else if x.sort.IsSeq() {
		if x.op == OpUnit && y.op == OpUnit {
			return a.AreEqual(x.args[0], y.args[0])
		}
		return TruthFalse
	}
	return TruthFalse
}

// literalRunes returns the characters of a string literal or a unit over
// a constant character.
func literalRunes(e *Expr) ([]rune, bool) {
	if s, ok := e.StringValue(); ok {
		return s, true
	} else if c, ok := e.UnitChar(); ok {
		return []rune{c}, true
	}
	return nil, false
}

// Str returns the string literal s.
func (a *Arena) Str(s string) *Expr {
	return a.StrRunes([]rune(s))
}

// StrRunes returns the string literal made of runes.
func (a *Arena) StrRunes(runes []rune) *Expr {
	for _, c := range runes {
		assert(c >= 0 && c <= MaxChar, "character out of range: %d", c)
	}
	return a.intern(&Expr{op: OpString, sort: SortString, runes: slices.Clone(runes)})
}

// Empty returns the empty sequence of the given sort.
func (a *Arena) Empty(sort Sort) *Expr {
	assert(sort.IsSeq(), "empty: non-sequence sort: %s", sort)
	if sort.IsString() {
		return a.StrRunes(nil)
	}
	return a.mk(OpSeqEmpty, sort, nil)
}

// Unit returns the sequence holding the single element x.
func (a *Arena) Unit(x *Expr) *Expr {
	return a.mk(OpUnit, SeqSort(x.sort), nil, x)
}

// Concat returns the concatenation of x and y.
func (a *Arena) Concat(x, y *Expr) *Expr {
	assertSeq(OpConcat, x, y)
	return a.mk(OpConcat, x.sort, nil, x, y)
}

// ConcatN returns the right-associated concatenation of es, or the empty
// sequence of the given sort when es is empty.
func (a *Arena) ConcatN(sort Sort, es ...*Expr) *Expr {
	if len(es) == 0 {
		return a.Empty(sort)
	}
	result := es[len(es)-1]
	for i := len(es) - 2; i >= 0; i-- {
		result = a.Concat(es[i], result)
	}
	return result
}

// Length returns the length of s.
func (a *Arena) Length(s *Expr) *Expr {
	assertSeq(OpLength, s)
	return a.mk(OpLength, SortInt, nil, s)
}

// Extract returns the sub-sequence of s starting at pos with length n.
func (a *Arena) Extract(s, pos, n *Expr) *Expr {
	assertSeq(OpExtract, s)
	assertInt(OpExtract, pos, n)
	return a.mk(OpExtract, s.sort, nil, s, pos, n)
}

// Contains returns the predicate that t occurs in s.
func (a *Arena) Contains(s, t *Expr) *Expr {
	assertSeq(OpContains, s, t)
	return a.mk(OpContains, SortBool, nil, s, t)
}

// At returns the unit sequence at position i of s, or the empty sequence.
func (a *Arena) At(s, i *Expr) *Expr {
	assertSeq(OpAt, s)
	assertInt(OpAt, i)
	return a.mk(OpAt, s.sort, nil, s, i)
}

// Nth returns the element at position i of s.
func (a *Arena) Nth(s, i *Expr) *Expr {
	return a.nth(OpNth, s, i)
}

// NthI returns the element at position i of s, for i within bounds.
func (a *Arena) NthI(s, i *Expr) *Expr {
	return a.nth(OpNthI, s, i)
}

// NthU returns the unspecified element at position i of s, for i out of bounds.
func (a *Arena) NthU(s, i *Expr) *Expr {
	return a.nth(OpNthU, s, i)
}

func (a *Arena) nth(op Op, s, i *Expr) *Expr {
	assertSeq(op, s)
	assertInt(op, i)
	return a.mk(op, s.sort.ElemSort(), nil, s, i)
}

// Index returns the first position of t in s at or after i.
func (a *Arena) Index(s, t, i *Expr) *Expr {
	assertSeq(OpIndex, s, t)
	assertInt(OpIndex, i)
	return a.mk(OpIndex, SortInt, nil, s, t, i)
}

// LastIndex returns the last position of t in s.
func (a *Arena) LastIndex(s, t *Expr) *Expr {
	assertSeq(OpLastIndex, s, t)
	return a.mk(OpLastIndex, SortInt, nil, s, t)
}

// Replace returns s with the first occurrence of t replaced by u.
func (a *Arena) Replace(s, t, u *Expr) *Expr {
	assertSeq(OpReplace, s, t, u)
	return a.mk(OpReplace, s.sort, nil, s, t, u)
}

// ReplaceAll returns s with every occurrence of t replaced by u.
func (a *Arena) ReplaceAll(s, t, u *Expr) *Expr {
	assertSeq(OpReplaceAll, s, t, u)
	return a.mk(OpReplaceAll, s.sort, nil, s, t, u)
}

// ReplaceRe returns s with the first match of r replaced by u.
func (a *Arena) ReplaceRe(s, r, u *Expr) *Expr {
	assertSeq(OpReplaceRe, s, u)
	assertRe(OpReplaceRe, r)
	return a.mk(OpReplaceRe, s.sort, nil, s, r, u)
}

// ReplaceReAll returns s with every match of r replaced by u.
func (a *Arena) ReplaceReAll(s, r, u *Expr) *Expr {
	assertSeq(OpReplaceReAll, s, u)
	assertRe(OpReplaceReAll, r)
	return a.mk(OpReplaceReAll, s.sort, nil, s, r, u)
}

// Prefix returns the predicate that s is a prefix of t.
func (a *Arena) Prefix(s, t *Expr) *Expr {
	assertSeq(OpPrefix, s, t)
	return a.mk(OpPrefix, SortBool, nil, s, t)
}

// Suffix returns the predicate that s is a suffix of t.
func (a *Arena) Suffix(s, t *Expr) *Expr {
	assertSeq(OpSuffix, s, t)
	return a.mk(OpSuffix, SortBool, nil, s, t)
}

// InRe returns the predicate that s is in the language of r.
func (a *Arena) InRe(s, r *Expr) *Expr {
	assertSeq(OpInRe, s)
	assertRe(OpInRe, r)
	assert(r.sort == ReSort(s.sort), "%s: sort mismatch: %s, %s", OpInRe, s.sort, r.sort)
	return a.mk(OpInRe, SortBool, nil, s, r)
}

// StoI returns the integer denoted by the decimal string s, or -1.
func (a *Arena) StoI(s *Expr) *Expr {
	assertString(OpStoI, s)
	return a.mk(OpStoI, SortInt, nil, s)
}

// ItoS returns the decimal string of i, or the empty string if i is negative.
func (a *Arena) ItoS(i *Expr) *Expr {
	assertInt(OpItoS, i)
	return a.mk(OpItoS, SortString, nil, i)
}

// ToCode returns the code of a single character string, or -1.
func (a *Arena) ToCode(s *Expr) *Expr {
	assertString(OpToCode, s)
	return a.mk(OpToCode, SortInt, nil, s)
}

// FromCode returns the single character string with code i, or the empty string.
func (a *Arena) FromCode(i *Expr) *Expr {
	assertInt(OpFromCode, i)
	return a.mk(OpFromCode, SortString, nil, i)
}

// IsDigit returns the predicate that s is a single decimal digit.
func (a *Arena) IsDigit(s *Expr) *Expr {
	assertString(OpIsDigit, s)
	return a.mk(OpIsDigit, SortBool, nil, s)
}

// StrLt returns the lexicographic comparison s < t.
func (a *Arena) StrLt(s, t *Expr) *Expr {
	assertString(OpStrLt, s, t)
	return a.mk(OpStrLt, SortBool, nil, s, t)
}

// StrLe returns the lexicographic comparison s <= t.
func (a *Arena) StrLe(s, t *Expr) *Expr {
	assertString(OpStrLe, s, t)
	return a.mk(OpStrLe, SortBool, nil, s, t)
}

// ReEmpty returns the empty language of the given regex sort.
func (a *Arena) ReEmpty(sort Sort) *Expr {
	assert(sort.IsRe(), "%s: non-regex sort: %s", OpReEmpty, sort)
	return a.mk(OpReEmpty, sort, nil)
}

// ReFull returns the language of all sequences of the given regex sort.
func (a *Arena) ReFull(sort Sort) *Expr {
	assert(sort.IsRe(), "%s: non-regex sort: %s", OpReFull, sort)
	return a.mk(OpReFull, sort, nil)
}

// ReAllChar returns the language of all single element sequences.
func (a *Arena) ReAllChar(sort Sort) *Expr {
	assert(sort.IsRe(), "%s: non-regex sort: %s", OpReAllChar, sort)
	return a.mk(OpReAllChar, sort, nil)
}

// ToRe returns the language holding only s.
func (a *Arena) ToRe(s *Expr) *Expr {
	assertSeq(OpToRe, s)
	return a.mk(OpToRe, ReSort(s.sort), nil, s)
}

// ReConcat returns the concatenation of two languages.
func (a *Arena) ReConcat(x, y *Expr) *Expr {
	assertRe(OpReConcat, x, y)
	return a.mk(OpReConcat, x.sort, nil, x, y)
}

// ReUnion returns the union of two languages.
func (a *Arena) ReUnion(x, y *Expr) *Expr {
	assertRe(OpReUnion, x, y)
	return a.mk(OpReUnion, x.sort, nil, x, y)
}

// ReInter returns the intersection of two languages.
func (a *Arena) ReInter(x, y *Expr) *Expr {
	assertRe(OpReInter, x, y)
	return a.mk(OpReInter, x.sort, nil, x, y)
}

// ReDiff returns the difference of two languages.
func (a *Arena) ReDiff(x, y *Expr) *Expr {
	assertRe(OpReDiff, x, y)
	return a.mk(OpReDiff, x.sort, nil, x, y)
}

// ReComplement returns the complement of a language.
func (a *Arena) ReComplement(r *Expr) *Expr {
	assertRe(OpReComplement, r)
	return a.mk(OpReComplement, r.sort, nil, r)
}

// ReStar returns the Kleene closure of a language.
func (a *Arena) ReStar(r *Expr) *Expr {
	assertRe(OpReStar, r)
	return a.mk(OpReStar, r.sort, nil, r)
}

// RePlus returns one or more repetitions of a language.
func (a *Arena) RePlus(r *Expr) *Expr {
	assertRe(OpRePlus, r)
	return a.mk(OpRePlus, r.sort, nil, r)
}

// ReOpt returns zero or one repetition of a language.
func (a *Arena) ReOpt(r *Expr) *Expr {
	assertRe(OpReOpt, r)
	return a.mk(OpReOpt, r.sort, nil, r)
}

// ReLoop returns between lo and hi repetitions of r.
func (a *Arena) ReLoop(r *Expr, lo, hi int) *Expr {
	assertRe(OpReLoop, r)
	assert(lo >= 0 && hi >= 0, "%s: negative bound: %d, %d", OpReLoop, lo, hi)
	return a.mk(OpReLoop, r.sort, []int{lo, hi}, r)
}

// ReLoopFrom returns at least lo repetitions of r.
func (a *Arena) ReLoopFrom(r *Expr, lo int) *Expr {
	assertRe(OpReLoop, r)
	assert(lo >= 0, "%s: negative bound: %d", OpReLoop, lo)
	return a.mk(OpReLoop, r.sort, []int{lo}, r)
}

// ReLoopTerm returns a loop whose bounds are integer terms. hi may be nil
// for a loop without upper bound.
func (a *Arena) ReLoopTerm(r, lo, hi *Expr) *Expr {
	assertRe(OpReLoop, r)
	if hi == nil {
		assertInt(OpReLoop, lo)
		return a.mk(OpReLoop, r.sort, nil, r, lo)
	}
	assertInt(OpReLoop, lo, hi)
	return a.mk(OpReLoop, r.sort, nil, r, lo, hi)
}

// RePower returns exactly n repetitions of r.
func (a *Arena) RePower(r *Expr, n int) *Expr {
	assertRe(OpRePower, r)
	assert(n >= 0, "%s: negative exponent: %d", OpRePower, n)
	return a.mk(OpRePower, r.sort, []int{n}, r)
}

// ReRange returns the language of single characters between lo and hi.
func (a *Arena) ReRange(lo, hi *Expr) *Expr {
	assertSeq(OpReRange, lo, hi)
	return a.mk(OpReRange, ReSort(lo.sort), nil, lo, hi)
}

// ReReverse returns the language of reversed sequences of r.
func (a *Arena) ReReverse(r *Expr) *Expr {
	assertRe(OpReReverse, r)
	return a.mk(OpReReverse, r.sort, nil, r)
}

// ReOfPred returns the language of single characters satisfying p. The
// character is denoted by BoundVar(SortChar) in p.
func (a *Arena) ReOfPred(p *Expr) *Expr {
	assert(p.sort == SortBool, "%s: non-boolean predicate: %s", OpReOfPred, p.sort)
	return a.mk(OpReOfPred, SortRegLan, nil, p)
}

// ReDerivative returns the derivative of r with respect to the element ele.
func (a *Arena) ReDerivative(ele, r *Expr) *Expr {
	assertRe(OpReDerivative, r)
	assert(ele.sort == r.sort.ElemSort(), "%s: sort mismatch: %s, %s", OpReDerivative, ele.sort, r.sort)
	return a.mk(OpReDerivative, r.sort, nil, ele, r)
}

// App returns the application of op to args. Constant and variable
// operators carry payloads and cannot be built with App.
func (a *Arena) App(op Op, params []int, args ...*Expr) *Expr {
	switch op {
	case OpNot:
		assertArity(op, args, 1)
		return a.Not(args[0])
	case OpAnd:
		return a.And(args...)
	case OpOr:
		return a.Or(args...)
	case OpEq:
		assertArity(op, args, 2)
		return a.Eq(args[0], args[1])
	case OpIte:
		assertArity(op, args, 3)
		return a.Ite(args[0], args[1], args[2])
	case OpAdd:
		return a.Add(args...)
	case OpMul:
		assertArity(op, args, 2)
		return a.Mul(args[0], args[1])
	case OpLe:
		assertArity(op, args, 2)
		return a.Le(args[0], args[1])
	case OpCharLe:
		assertArity(op, args, 2)
		return a.CharLe(args[0], args[1])

	case OpUnit:
		assertArity(op, args, 1)
		return a.Unit(args[0])
	case OpConcat:
		assertArity(op, args, 2)
		return a.Concat(args[0], args[1])
	case OpLength:
		assertArity(op, args, 1)
		return a.Length(args[0])
	case OpExtract:
		assertArity(op, args, 3)
		return a.Extract(args[0], args[1], args[2])
	case OpContains:
		assertArity(op, args, 2)
		return a.Contains(args[0], args[1])
	case OpAt:
		assertArity(op, args, 2)
		return a.At(args[0], args[1])
	case OpNth, OpNthI, OpNthU:
		assertArity(op, args, 2)
		return a.nth(op, args[0], args[1])
	case OpIndex:
		if len(args) == 2 {
			assertSeq(op, args[0], args[1])
			return a.mk(OpIndex, SortInt, nil, args...)
		}
		assertArity(op, args, 3)
		return a.Index(args[0], args[1], args[2])
	case OpLastIndex:
		assertArity(op, args, 2)
		return a.LastIndex(args[0], args[1])
	case OpReplace:
		assertArity(op, args, 3)
		return a.Replace(args[0], args[1], args[2])
	case OpReplaceAll:
		assertArity(op, args, 3)
		return a.ReplaceAll(args[0], args[1], args[2])
	case OpReplaceRe:
		assertArity(op, args, 3)
		return a.ReplaceRe(args[0], args[1], args[2])
	case OpReplaceReAll:
		assertArity(op, args, 3)
		return a.ReplaceReAll(args[0], args[1], args[2])
	case OpPrefix:
		assertArity(op, args, 2)
		return a.Prefix(args[0], args[1])
	case OpSuffix:
		assertArity(op, args, 2)
		return a.Suffix(args[0], args[1])
	case OpInRe:
		assertArity(op, args, 2)
		return a.InRe(args[0], args[1])
	case OpStoI:
		assertArity(op, args, 1)
		return a.StoI(args[0])
	case OpItoS:
		assertArity(op, args, 1)
		return a.ItoS(args[0])
	case OpToCode:
		assertArity(op, args, 1)
		return a.ToCode(args[0])
	case OpFromCode:
		assertArity(op, args, 1)
		return a.FromCode(args[0])
	case OpIsDigit:
		assertArity(op, args, 1)
		return a.IsDigit(args[0])
	case OpStrLt:
		assertArity(op, args, 2)
		return a.StrLt(args[0], args[1])
	case OpStrLe:
		assertArity(op, args, 2)
		return a.StrLe(args[0], args[1])

	case OpToRe:
		assertArity(op, args, 1)
		return a.ToRe(args[0])
	case OpReConcat:
		assertArity(op, args, 2)
		return a.ReConcat(args[0], args[1])
	case OpReUnion:
		assertArity(op, args, 2)
		return a.ReUnion(args[0], args[1])
	case OpReInter:
		assertArity(op, args, 2)
		return a.ReInter(args[0], args[1])
	case OpReDiff:
		assertArity(op, args, 2)
		return a.ReDiff(args[0], args[1])
	case OpReComplement:
		assertArity(op, args, 1)
		return a.ReComplement(args[0])
	case OpReStar:
		assertArity(op, args, 1)
		return a.ReStar(args[0])
	case OpRePlus:
		assertArity(op, args, 1)
		return a.RePlus(args[0])
	case OpReOpt:
		assertArity(op, args, 1)
		return a.ReOpt(args[0])
	case OpReLoop:
		switch {
		case len(params) == 1:
			assertArity(op, args, 1)
			return a.ReLoopFrom(args[0], params[0])
		case len(params) == 2:
			assertArity(op, args, 1)
			return a.ReLoop(args[0], params[0], params[1])
		case len(args) == 2:
			return a.ReLoopTerm(args[0], args[1], nil)
		default:
			assertArity(op, args, 3)
			return a.ReLoopTerm(args[0], args[1], args[2])
		}
	case OpRePower:
		assertArity(op, args, 1)
		assert(len(params) == 1, "%s: missing exponent", op)
		return a.RePower(args[0], params[0])
	case OpReRange:
		assertArity(op, args, 2)
		return a.ReRange(args[0], args[1])
	case OpReReverse:
		assertArity(op, args, 1)
		return a.ReReverse(args[0])
	case OpReOfPred:
		assertArity(op, args, 1)
		return a.ReOfPred(args[0])
	case OpReDerivative:
		assertArity(op, args, 2)
		return a.ReDerivative(args[0], args[1])

	default:
		assert(op.isValid(), "unknown operator: %s", op)
		panic(fmt.Sprintf("assert: %s has no arguments", op))
	}
}

// Rebuild returns e with its arguments replaced by args.
func (a *Arena) Rebuild(e *Expr, args []*Expr) *Expr {
	if len(e.args) == 0 {
		return e
	}
	changed := false
	for i := range args {
		if args[i] != e.args[i] {
			changed = true
			break
		}
	}
	if !changed {
		return e
	}
	return a.App(e.op, e.params, args...)
}

// Subst returns e with the bound variable replaced by x.
func (a *Arena) Subst(e, x *Expr) *Expr {
	memo := make(map[*Expr]*Expr)
	var subst func(e *Expr) *Expr
	subst = func(e *Expr) *Expr {
		if e.op == OpBoundVar {
			assert(e.sort == x.sort, "subst: sort mismatch: %s != %s", e.sort, x.sort)
			return x
		} else if len(e.args) == 0 {
			return e
		} else if other, ok := memo[e]; ok {
			return other
		}

		args := make([]*Expr, len(e.args))
		for i, arg := range e.args {
			args[i] = subst(arg)
		}
		other := a.Rebuild(e, args)
		memo[e] = other
		return other
	}
	return subst(e)
}

func assertArity(op Op, args []*Expr, n int) {
	assert(len(args) == n, "%s: expected %d arguments, got %d", op, n, len(args))
}

func assertSeq(op Op, args ...*Expr) {
	for _, arg := range args {
		assert(arg.sort.IsSeq(), "%s: non-sequence argument: %s", op, arg.sort)
		assert(arg.sort == args[0].sort, "%s: sort mismatch: %s != %s", op, arg.sort, args[0].sort)
	}
}

func assertString(op Op, args ...*Expr) {
	for _, arg := range args {
		assert(arg.sort.IsString(), "%s: non-string argument: %s", op, arg.sort)
	}
}

func assertRe(op Op, args ...*Expr) {
	for _, arg := range args {
		assert(arg.sort.IsRe(), "%s: non-regex argument: %s", op, arg.sort)
		assert(arg.sort == args[0].sort, "%s: sort mismatch: %s != %s", op, arg.sort, args[0].sort)
	}
}

func assertInt(op Op, args ...*Expr) {
	for _, arg := range args {
		assert(arg.sort == SortInt, "%s: non-integer argument: %s", op, arg.sort)
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed once for every distinct node. Returning nil skips the children.
	Visit(expr *Expr) ExprVisitor
}

type visitorFunc func(e *Expr) bool

func (fn visitorFunc) Visit(e *Expr) ExprVisitor {
	if !fn(e) {
		return nil
	}
	return fn
}

// WalkExpr visits every distinct node reachable from expr in depth-first
// order, parents before children.
func WalkExpr(v ExprVisitor, expr *Expr) {
	type frame struct {
		v ExprVisitor
		e *Expr
	}

	seen := make(map[*Expr]struct{})
	stack := []frame{{v, expr}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[f.e]; ok {
			continue
		}
		seen[f.e] = struct{}{}

		w := f.v.Visit(f.e)
		if w == nil {
			continue
		}
		for i := len(f.e.args) - 1; i >= 0; i-- {
			stack = append(stack, frame{w, f.e.args[i]})
		}
	}
}

// FindVars returns all free variables in the expressions, sorted by name.
func FindVars(exprs ...*Expr) []*Expr {
	m := make(map[*Expr]struct{})
	for _, expr := range exprs {
		WalkExpr(visitorFunc(func(e *Expr) bool {
			if e.op == OpVar {
				m[e] = struct{}{}
			}
			return true
		}), expr)
	}

	a := make([]*Expr, 0, len(m))
	for v := range m {
		a = append(a, v)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].name < a[j].name })
	return a
}
