package seqre

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/tools/container/intsets"
)

// MaxMinterms is the largest number of distinct outgoing predicates of a
// subset state that complementation will split into minterms.
const MaxMinterms = 12

// Move is a transition between two states. A nil predicate labels an
// epsilon move.
type Move struct {
	Src  int
	Dst  int
	Pred *SymExpr
}

// IsEpsilon returns true if the move consumes no element.
func (m Move) IsEpsilon() bool { return m.Pred == nil }

// String returns the string representation of the move.
func (m Move) String() string {
	if m.IsEpsilon() {
		return fmt.Sprintf("%d -> %d", m.Src, m.Dst)
	}
	return fmt.Sprintf("%d -(%s)-> %d", m.Src, m.Pred, m.Dst)
}

// Automaton represents a finite automaton whose moves are labeled by
// symbolic predicates. States are numbered from zero.
//
// Moves are kept in a persistent map so that clones share structure.
type Automaton struct {
	init      int
	numStates int
	finals    *bitset.BitSet
	moves     *immutable.SortedMap[int, []Move]
}

func newAutomaton(numStates int) *Automaton {
	return &Automaton{
		numStates: numStates,
		finals:    bitset.New(uint(numStates)),
		moves:     immutable.NewSortedMap[int, []Move](nil),
	}
}

// EmptyAutomaton returns an automaton accepting no sequence.
func EmptyAutomaton() *Automaton {
	return newAutomaton(1)
}

// EpsilonAutomaton returns an automaton accepting only the empty sequence.
func EpsilonAutomaton() *Automaton {
	aut := newAutomaton(1)
	aut.finals.Set(0)
	return aut
}

// NewSymAutomaton returns an automaton accepting single elements satisfying p.
func NewSymAutomaton(p *SymExpr) *Automaton {
	aut := newAutomaton(2)
	aut.addMove(Move{Src: 0, Dst: 1, Pred: p})
	aut.finals.Set(1)
	return aut
}

// NewLoopAutomaton returns an automaton accepting any sequence of elements satisfying p.
func NewLoopAutomaton(p *SymExpr) *Automaton {
	aut := newAutomaton(1)
	aut.addMove(Move{Src: 0, Dst: 0, Pred: p})
	aut.finals.Set(0)
	return aut
}

// NewChainAutomaton returns an automaton accepting the single sequence
// whose i-th element satisfies preds[i].
func NewChainAutomaton(preds []*SymExpr) *Automaton {
	aut := newAutomaton(len(preds) + 1)
	for i, p := range preds {
		aut.addMove(Move{Src: i, Dst: i + 1, Pred: p})
	}
	aut.finals.Set(uint(len(preds)))
	return aut
}

// Init returns the initial state.
func (aut *Automaton) Init() int { return aut.init }

// NumStates returns the number of states.
func (aut *Automaton) NumStates() int { return aut.numStates }

// IsFinal returns true if s is a final state.
func (aut *Automaton) IsFinal(s int) bool { return aut.finals.Test(uint(s)) }

// Finals returns the final states in ascending order.
func (aut *Automaton) Finals() []int {
	var a []int
	for i, ok := aut.finals.NextSet(0); ok; i, ok = aut.finals.NextSet(i + 1) {
		a = append(a, int(i))
	}
	return a
}

// Moves returns the moves leaving s.
func (aut *Automaton) Moves(s int) []Move {
	moves, _ := aut.moves.Get(s)
	return moves
}

// AllMoves returns every move, ordered by source state.
func (aut *Automaton) AllMoves() []Move {
	var a []Move
	itr := aut.moves.Iterator()
	for !itr.Done() {
		_, moves, _ := itr.Next()
		a = append(a, moves...)
	}
	return a
}

func (aut *Automaton) addMove(m Move) {
	assert(m.Src >= 0 && m.Src < aut.numStates && m.Dst >= 0 && m.Dst < aut.numStates,
		"move out of range: %s (states=%d)", m, aut.numStates)
	moves, _ := aut.moves.Get(m.Src)
	if slices.Contains(moves, m) {
		return
	}
	aut.moves = aut.moves.Set(m.Src, append(slices.Clip(moves), m))
}

// Clone returns a copy of the automaton.
func (aut *Automaton) Clone() *Automaton {
	return &Automaton{
		init:      aut.init,
		numStates: aut.numStates,
		finals:    aut.finals.Clone(),
		moves:     aut.moves,
	}
}

// AddFinalToInitMoves adds an epsilon move from every final state to the initial state.
func (aut *Automaton) AddFinalToInitMoves() {
	for _, s := range aut.Finals() {
		if s != aut.init {
			aut.addMove(Move{Src: s, Dst: aut.init})
		}
	}
}

// AddInitToFinalStates marks the initial state as final.
func (aut *Automaton) AddInitToFinalStates() {
	aut.finals.Set(uint(aut.init))
}

// initIsSource returns true if no move enters the initial state.
func (aut *Automaton) initIsSource() bool {
	for _, m := range aut.AllMoves() {
		if m.Dst == aut.init {
			return false
		}
	}
	return true
}

// shift returns a copy of the automaton with all states offset by n in an
// automaton of size states.
func (aut *Automaton) shift(n, size int) *Automaton {
	other := newAutomaton(size)
	other.init = aut.init + n
	for _, s := range aut.Finals() {
		other.finals.Set(uint(s + n))
	}
	for _, m := range aut.AllMoves() {
		other.addMove(Move{Src: m.Src + n, Dst: m.Dst + n, Pred: m.Pred})
	}
	return other
}

// merge copies the moves and final states of other into aut.
func (aut *Automaton) merge(other *Automaton) {
	for _, m := range other.AllMoves() {
		aut.addMove(m)
	}
	aut.finals.InPlaceUnion(other.finals)
}

// ConcatAutomaton returns an automaton accepting the concatenations of
// sequences accepted by a and b.
func ConcatAutomaton(a, b *Automaton) *Automaton {
	size := a.numStates + b.numStates
	aut := a.shift(0, size)
	bb := b.shift(a.numStates, size)
	for _, m := range bb.AllMoves() {
		aut.addMove(m)
	}
	for _, s := range a.Finals() {
		aut.addMove(Move{Src: s, Dst: bb.init})
	}
	aut.finals = bb.finals
	return aut
}

// UnionAutomaton returns an automaton accepting the sequences accepted by a or b.
func UnionAutomaton(a, b *Automaton) *Automaton {
	size := 1 + a.numStates + b.numStates
	aut := newAutomaton(size)
	aa := a.shift(1, size)
	bb := b.shift(1+a.numStates, size)
	aut.merge(aa)
	aut.merge(bb)
	aut.addMove(Move{Src: 0, Dst: aa.init})
	aut.addMove(Move{Src: 0, Dst: bb.init})
	return aut
}

// OptAutomaton returns an automaton accepting the empty sequence or the sequences of a.
func OptAutomaton(a *Automaton) *Automaton {
	return UnionAutomaton(EpsilonAutomaton(), a)
}

// StarAutomaton returns an automaton accepting repetitions of sequences of a.
func StarAutomaton(a *Automaton) *Automaton {
	aut := a.Clone()
	if !aut.initIsSource() {
		// Marking an initial state with incoming moves as final would accept
		// the prefixes leading back to it.
		aut = ConcatAutomaton(EpsilonAutomaton(), aut)
	}
	aut.AddFinalToInitMoves()
	aut.AddInitToFinalStates()
	return aut
}

// PlusAutomaton returns an automaton accepting one or more repetitions of sequences of a.
func PlusAutomaton(a *Automaton) *Automaton {
	aut := a.Clone()
	aut.AddFinalToInitMoves()
	return aut
}

// EpsilonClosure returns the states reachable from s by epsilon moves, including s.
func (aut *Automaton) EpsilonClosure(s int) *intsets.Sparse {
	var closure intsets.Sparse
	closure.Insert(s)
	stack := []int{s}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range aut.Moves(t) {
			if m.IsEpsilon() && closure.Insert(m.Dst) {
				stack = append(stack, m.Dst)
			}
		}
	}
	return &closure
}

// RemoveEpsilons returns an equivalent automaton without epsilon moves.
func (aut *Automaton) RemoveEpsilons() *Automaton {
	other := newAutomaton(aut.numStates)
	other.init = aut.init
	for s := 0; s < aut.numStates; s++ {
		closure := aut.EpsilonClosure(s)
		for _, t := range closure.AppendTo(nil) {
			if aut.IsFinal(t) {
				other.finals.Set(uint(s))
			}
			for _, m := range aut.Moves(t) {
				if !m.IsEpsilon() && !m.Pred.IsFalse() {
					other.addMove(Move{Src: s, Dst: m.Dst, Pred: m.Pred})
				}
			}
		}
	}
	return other
}

// Compress returns an equivalent automaton without epsilon moves, keeping
// only states that are reachable from the initial state and can reach a
// final state.
func (aut *Automaton) Compress() *Automaton {
	nfa := aut.RemoveEpsilons()

	var reachable intsets.Sparse
	reachable.Insert(nfa.init)
	stack := []int{nfa.init}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range nfa.Moves(s) {
			if reachable.Insert(m.Dst) {
				stack = append(stack, m.Dst)
			}
		}
	}

	// Walk backwards from the final states.
	preds := make(map[int][]int)
	for _, m := range nfa.AllMoves() {
		preds[m.Dst] = append(preds[m.Dst], m.Src)
	}
	var live intsets.Sparse
	for _, s := range nfa.Finals() {
		if reachable.Has(s) && live.Insert(s) {
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range preds[s] {
			if reachable.Has(t) && live.Insert(t) {
				stack = append(stack, t)
			}
		}
	}
	if !live.Has(nfa.init) {
		return EmptyAutomaton()
	}

	index := make(map[int]int)
	for _, s := range live.AppendTo(nil) {
		index[s] = len(index)
	}
	other := newAutomaton(len(index))
	other.init = index[nfa.init]
	for s, i := range index {
		if nfa.IsFinal(s) {
			other.finals.Set(uint(i))
		}
		for _, m := range nfa.Moves(s) {
			if j, ok := index[m.Dst]; ok {
				other.addMove(Move{Src: i, Dst: j, Pred: m.Pred})
			}
		}
	}
	return other
}

// IsEmpty returns true if no final state is reachable from the initial
// state. Predicates are assumed satisfiable unless they are constant false.
func (aut *Automaton) IsEmpty() bool {
	var seen intsets.Sparse
	seen.Insert(aut.init)
	stack := []int{aut.init}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if aut.IsFinal(s) {
			return false
		}
		for _, m := range aut.Moves(s) {
			if m.Pred != nil && m.Pred.IsFalse() {
				continue
			}
			if seen.Insert(m.Dst) {
				stack = append(stack, m.Dst)
			}
		}
	}
	return true
}

// Accepts returns true if the automaton accepts word. Predicates must be
// ground once applied to a character.
func (aut *Automaton) Accepts(a *Arena, word []rune) (bool, error) {
	eval := NewExprEvaluator(a, nil)
	current := aut.EpsilonClosure(aut.init)
	for _, c := range word {
		var next intsets.Sparse
		for _, s := range current.AppendTo(nil) {
			for _, m := range aut.Moves(s) {
				if m.IsEpsilon() {
					continue
				}
				v, err := eval.Evaluate(m.Pred.Accept(a, a.Char(c)))
				if err != nil {
					return false, err
				} else if v.IsTrue() {
					next.UnionWith(aut.EpsilonClosure(m.Dst))
				}
			}
		}
		current = &next
	}
	for _, s := range current.AppendTo(nil) {
		if aut.IsFinal(s) {
			return true, nil
		}
	}
	return false, nil
}

// IsSequence returns the elements of the only sequence the automaton
// accepts, if it accepts exactly one sequence made of single element moves.
func (aut *Automaton) IsSequence() ([]*Expr, bool) {
	nfa := aut.Compress()
	var seq []*Expr
	var seen intsets.Sparse
	for s := nfa.init; ; {
		if !seen.Insert(s) {
			return nil, false
		}
		moves := nfa.Moves(s)
		if len(moves) == 0 {
			return seq, nfa.IsFinal(s)
		} else if len(moves) > 1 || nfa.IsFinal(s) || moves[0].Pred.Kind != SymChar {
			return nil, false
		}
		seq = append(seq, moves[0].Pred.Char)
		s = moves[0].Dst
	}
}

// ProductAutomaton returns an automaton accepting the sequences accepted
// by both a and b. Moves whose conjoined predicate is unsatisfiable are dropped.
func ProductAutomaton(ctx context.Context, ba *BooleanAlgebra, a, b *Automaton) (*Automaton, error) {
	a, b = a.RemoveEpsilons(), b.RemoveEpsilons()

	type pair struct{ s, t int }
	index := map[pair]int{{a.init, b.init}: 0}
	queue := []pair{{a.init, b.init}}
	var moves []Move
	var finals []int
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, ErrCanceled
		}
		p := queue[0]
		queue = queue[1:]
		src := index[p]
		if a.IsFinal(p.s) && b.IsFinal(p.t) {
			finals = append(finals, src)
		}

		for _, ma := range a.Moves(p.s) {
			for _, mb := range b.Moves(p.t) {
				pred := ba.And(ma.Pred, mb.Pred)
				if pred.IsFalse() || ba.IsSat(pred) == TruthFalse {
					continue
				}
				q := pair{ma.Dst, mb.Dst}
				dst, ok := index[q]
				if !ok {
					dst = len(index)
					index[q] = dst
					queue = append(queue, q)
				}
				moves = append(moves, Move{Src: src, Dst: dst, Pred: pred})
			}
		}
	}

	aut := newAutomaton(len(index))
	for _, m := range moves {
		aut.addMove(m)
	}
	for _, s := range finals {
		aut.finals.Set(uint(s))
	}
	return aut.Compress(), nil
}

// ComplementAutomaton returns an automaton accepting the sequences a does
// not accept. The automaton is determinized over the minterms of the
// outgoing predicates of each subset state, which requires a solver.
func ComplementAutomaton(ctx context.Context, ba *BooleanAlgebra, a *Automaton) (*Automaton, error) {
	if !ba.HasSolver() {
		return nil, ErrNotSupported
	}
	nfa := a.RemoveEpsilons()

	type minterm struct {
		pred *SymExpr
		dsts intsets.Sparse
	}

	var start intsets.Sparse
	start.Insert(nfa.init)
	subsets := []*intsets.Sparse{&start}
	index := map[string]int{start.String(): 0}
	needSink := false
	var moves []Move

	for i := 0; i < len(subsets); i++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrCanceled
		}

		var out []Move
		for _, s := range subsets[i].AppendTo(nil) {
			out = append(out, nfa.Moves(s)...)
		}
		if len(out) > MaxMinterms {
			return nil, ErrNotSupported
		}

		terms := []*minterm{{pred: ba.True()}}
		for _, m := range out {
			var next []*minterm
			for _, t := range terms {
				if pos := ba.And(t.pred, m.Pred); !pos.IsFalse() && ba.IsSat(pos) != TruthFalse {
					u := &minterm{pred: pos}
					u.dsts.Copy(&t.dsts)
					u.dsts.Insert(m.Dst)
					next = append(next, u)
				}
				if neg := ba.And(t.pred, ba.Not(m.Pred)); !neg.IsFalse() && ba.IsSat(neg) != TruthFalse {
					u := &minterm{pred: neg}
					u.dsts.Copy(&t.dsts)
					next = append(next, u)
				}
			}
			terms = next
		}

		for _, t := range terms {
			if t.dsts.IsEmpty() {
				// The sink state is numbered once all subset states are known.
				needSink = true
				moves = append(moves, Move{Src: i, Dst: -1, Pred: t.pred})
				continue
			}
			key := t.dsts.String()
			dst, ok := index[key]
			if !ok {
				dst = len(subsets)
				index[key] = dst
				dsts := new(intsets.Sparse)
				dsts.Copy(&t.dsts)
				subsets = append(subsets, dsts)
			}
			moves = append(moves, Move{Src: i, Dst: dst, Pred: t.pred})
		}
	}

	size, sink := len(subsets), len(subsets)
	if needSink {
		size++
	}
	aut := newAutomaton(size)
	for _, m := range moves {
		if m.Dst < 0 {
			m.Dst = sink
		}
		aut.addMove(m)
	}
	if needSink {
		aut.addMove(Move{Src: sink, Dst: sink, Pred: ba.True()})
		aut.finals.Set(uint(sink))
	}
	for i, subset := range subsets {
		final := false
		for _, s := range subset.AppendTo(nil) {
			final = final || nfa.IsFinal(s)
		}
		if !final {
			aut.finals.Set(uint(i))
		}
	}
	return aut, nil
}

// String returns a multi-line description of the automaton.
func (aut *Automaton) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "init=%d final=%v\n", aut.init, aut.Finals())
	for _, m := range aut.AllMoves() {
		fmt.Fprintln(&buf, m)
	}
	return buf.String()
}
