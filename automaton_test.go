package seqre_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/benbjohnson/seqre"
	"github.com/benbjohnson/seqre/sat"
	"github.com/google/go-cmp/cmp"
)

// MustCompile compiles r with a compiler that has no solver.
func MustCompile(tb testing.TB, a *seqre.Arena, r *seqre.Expr) *seqre.Automaton {
	tb.Helper()
	aut, err := seqre.NewRegexCompiler(a, seqre.NewBooleanAlgebra(a, nil)).Compile(r)
	if err != nil {
		tb.Fatal(err)
	}
	return aut
}

// MustAccept checks that aut accepts exactly the words mapped to true.
func MustAccept(tb testing.TB, a *seqre.Arena, aut *seqre.Automaton, words map[string]bool) {
	tb.Helper()
	for s, want := range words {
		if got, err := aut.Accepts(a, []rune(s)); err != nil {
			tb.Fatal(err)
		} else if got != want {
			tb.Fatalf("unexpected acceptance of %q: %v\n%s", s, got, aut)
		}
	}
}

func TestAutomaton(t *testing.T) {
	a := seqre.NewArena()
	char := func(c rune) *seqre.SymExpr { return seqre.NewSymChar(a.Char(c)) }

	t.Run("Epsilon", func(t *testing.T) {
		MustAccept(t, a, seqre.EpsilonAutomaton(), map[string]bool{"": true, "a": false})
		MustAccept(t, a, seqre.EmptyAutomaton(), map[string]bool{"": false, "a": false})
	})

	t.Run("Concat", func(t *testing.T) {
		aut := seqre.ConcatAutomaton(seqre.NewSymAutomaton(char('a')), seqre.NewSymAutomaton(char('b')))
		MustAccept(t, a, aut, map[string]bool{"ab": true, "a": false, "ba": false, "abb": false})
	})

	t.Run("Union", func(t *testing.T) {
		aut := seqre.UnionAutomaton(seqre.NewSymAutomaton(char('a')), seqre.EpsilonAutomaton())
		MustAccept(t, a, aut, map[string]bool{"": true, "a": true, "b": false, "aa": false})
	})

	t.Run("Star", func(t *testing.T) {
		aut := seqre.StarAutomaton(seqre.NewChainAutomaton([]*seqre.SymExpr{char('a'), char('b')}))
		MustAccept(t, a, aut, map[string]bool{"": true, "ab": true, "abab": true, "a": false, "aba": false})
	})

	t.Run("StarOfLoop", func(t *testing.T) {
		// The initial state of a+ has incoming moves.
		aut := seqre.StarAutomaton(seqre.ConcatAutomaton(seqre.NewLoopAutomaton(char('a')), seqre.NewSymAutomaton(char('b'))))
		MustAccept(t, a, aut, map[string]bool{"": true, "b": true, "aab": true, "aabb": true, "a": false, "ba": false})
	})

	t.Run("Plus", func(t *testing.T) {
		aut := seqre.PlusAutomaton(seqre.NewSymAutomaton(char('a')))
		MustAccept(t, a, aut, map[string]bool{"": false, "a": true, "aaa": true, "ab": false})
	})

	t.Run("Compress", func(t *testing.T) {
		aut := seqre.ConcatAutomaton(seqre.NewSymAutomaton(char('a')), seqre.EmptyAutomaton()).Compress()
		if !aut.IsEmpty() {
			t.Fatalf("expected empty automaton:\n%s", aut)
		} else if n := aut.NumStates(); n != 1 {
			t.Fatalf("unexpected state count: %d", n)
		}
	})
}

func TestRegexCompiler_Compile(t *testing.T) {
	a := seqre.NewArena()
	ra, rb := a.ToRe(a.Str("a")), a.ToRe(a.Str("b"))
	ab := a.ReUnion(ra, rb)

	t.Run("Loop", func(t *testing.T) {
		r := a.ReLoop(a.ReUnion(a.ToRe(a.Str("ab")), a.ToRe(a.Str("c"))), 1, 2)
		MustAccept(t, a, MustCompile(t, a, r), map[string]bool{
			"ab": true, "c": true, "abc": true, "cc": true, "abab": true,
			"": false, "a": false, "ccc": false,
		})
	})

	t.Run("LoopFrom", func(t *testing.T) {
		MustAccept(t, a, MustCompile(t, a, a.ReLoopFrom(ra, 2)), map[string]bool{
			"aa": true, "aaaa": true, "a": false, "": false, "aab": false,
		})
	})

	t.Run("Range", func(t *testing.T) {
		r := a.ReRange(a.Str("a"), a.Str("c"))
		MustAccept(t, a, MustCompile(t, a, r), map[string]bool{"a": true, "b": true, "c": true, "d": false, "": false})

		if aut := MustCompile(t, a, a.ReRange(a.Str("ab"), a.Str("c"))); !aut.IsEmpty() {
			t.Fatalf("expected empty automaton:\n%s", aut)
		}
	})

	t.Run("Full", func(t *testing.T) {
		full := a.ReFull(seqre.SortRegLan)
		MustAccept(t, a, MustCompile(t, a, full), map[string]bool{"": true, "xyz": true})
		MustAccept(t, a, MustCompile(t, a, a.ReConcat(a.ReAllChar(seqre.SortRegLan), a.ReOpt(rb))), map[string]bool{
			"": false, "x": true, "xb": true, "xa": false,
		})
	})

	t.Run("Empty", func(t *testing.T) {
		for _, r := range []*seqre.Expr{
			a.ReEmpty(seqre.SortRegLan),
			a.ReLoop(ra, 3, 2),
			a.ReLoop(ra, 1<<30, 1),
			a.ReConcat(ra, a.ReEmpty(seqre.SortRegLan)),
		} {
			if aut := MustCompile(t, a, r); !aut.IsEmpty() {
				t.Fatalf("expected empty automaton for %s:\n%s", r, aut)
			}
		}
		if aut := MustCompile(t, a, a.ReStar(a.ReEmpty(seqre.SortRegLan))); aut.IsEmpty() {
			t.Fatal("expected non-empty automaton")
		}
	})

	t.Run("IsSequence", func(t *testing.T) {
		seq, ok := MustCompile(t, a, a.ReConcat(a.ToRe(a.Str("ab")), a.ToRe(a.Str("c")))).IsSequence()
		if !ok {
			t.Fatal("expected sequence")
		}
		want := []*seqre.Expr{a.Char('a'), a.Char('b'), a.Char('c')}
		if diff := cmp.Diff(want, seq, cmp.Comparer(func(x, y *seqre.Expr) bool { return x == y })); diff != "" {
			t.Fatal(diff)
		}

		for _, r := range []*seqre.Expr{ab, a.ReStar(ra), a.ReOpt(ra)} {
			if _, ok := MustCompile(t, a, r).IsSequence(); ok {
				t.Fatalf("unexpected sequence: %s", r)
			}
		}
	})

	t.Run("ErrNotSupported", func(t *testing.T) {
		rc := seqre.NewRegexCompiler(a, seqre.NewBooleanAlgebra(a, nil))
		n := a.Var("n", seqre.SortInt)
		for _, r := range []*seqre.Expr{
			a.ReComplement(ra),
			a.ReInter(ra, rb),
			a.ReDiff(ra, rb),
			a.ToRe(a.Var("x", seqre.SortString)),
			a.ReLoopTerm(ra, n, nil),
			a.ReReverse(ra),
			a.ReLoop(ra, 0, 1<<30),
			a.ReLoopFrom(ra, seqre.MaxLoopUnroll+1),
		} {
			if _, err := rc.Compile(r); !errors.Is(err, seqre.ErrNotSupported) {
				t.Fatalf("unexpected error for %s: %v", r, err)
			}
		}
	})

	t.Run("ErrCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rc := seqre.NewRegexCompiler(a, seqre.NewBooleanAlgebra(a, nil)).WithContext(ctx)
		if _, err := rc.Compile(ra); err != seqre.ErrCanceled {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRegexCompiler_Compile_Solver(t *testing.T) {
	a := seqre.NewArena()
	rc := seqre.NewRegexCompiler(a, seqre.NewBooleanAlgebra(a, sat.NewSolver(a)))
	ra, rb := a.ToRe(a.Str("a")), a.ToRe(a.Str("b"))
	ab := a.ReUnion(ra, rb)

	MustCompileSolver := func(tb testing.TB, r *seqre.Expr) *seqre.Automaton {
		tb.Helper()
		aut, err := rc.Compile(r)
		if err != nil {
			tb.Fatal(err)
		}
		return aut
	}

	t.Run("Complement", func(t *testing.T) {
		MustAccept(t, a, MustCompileSolver(t, a.ReComplement(ra)), map[string]bool{
			"": true, "a": false, "b": true, "aa": true, "ab": true,
		})
	})

	t.Run("Inter", func(t *testing.T) {
		r := a.ReInter(a.ReLoopFrom(a.ReAllChar(seqre.SortRegLan), 2), a.ReStar(ab))
		MustAccept(t, a, MustCompileSolver(t, r), map[string]bool{
			"ab": true, "bbb": true, "a": false, "abc": false, "": false,
		})
	})

	t.Run("Diff", func(t *testing.T) {
		r := a.ReDiff(a.ReStar(ab), a.ToRe(a.Str("ab")))
		MustAccept(t, a, MustCompileSolver(t, r), map[string]bool{
			"": true, "ba": true, "abb": true, "ab": false, "c": false,
		})
	})

	t.Run("DisjointInter", func(t *testing.T) {
		r := a.ReInter(a.ReRange(a.Str("a"), a.Str("c")), a.ReRange(a.Str("x"), a.Str("z")))
		if aut := MustCompileSolver(t, r); !aut.IsEmpty() {
			t.Fatalf("expected empty automaton:\n%s", aut)
		}
	})
}

// RandomRegex returns a random ground regex over the characters a and b.
func RandomRegex(rand *rand.Rand, a *seqre.Arena, depth int) *seqre.Expr {
	if depth == 0 || rand.Intn(4) == 0 {
		switch rand.Intn(4) {
		case 0:
			return a.ToRe(a.Str(""))
		case 1:
			return a.ReAllChar(seqre.SortRegLan)
		default:
			return a.ToRe(a.Str(string(rune('a' + rand.Intn(2)))))
		}
	}

	switch rand.Intn(6) {
	case 0:
		return a.ReConcat(RandomRegex(rand, a, depth-1), RandomRegex(rand, a, depth-1))
	case 1:
		return a.ReUnion(RandomRegex(rand, a, depth-1), RandomRegex(rand, a, depth-1))
	case 2:
		return a.ReStar(RandomRegex(rand, a, depth-1))
	case 3:
		return a.ReOpt(RandomRegex(rand, a, depth-1))
	case 4:
		return a.RePlus(RandomRegex(rand, a, depth-1))
	default:
		lo := rand.Intn(3)
		return a.ReLoop(RandomRegex(rand, a, depth-1), lo, lo+rand.Intn(2))
	}
}

// Ensure the derivative matcher and the compiled automaton agree.
func TestMatcher_Automaton(t *testing.T) {
	rand := rand.New(rand.NewSource(0))
	words := []string{"", "a", "b", "ab", "ba", "aa", "bb", "aab", "abab", "bbba"}

	for i := 0; i < 100; i++ {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			rw := NewRewriter()
			a := rw.Arena()
			r := RandomRegex(rand, a, 3)
			aut := MustCompile(t, a, r)
			m := seqre.NewMatcher(rw)

			for _, s := range words {
				want, err := aut.Accepts(a, []rune(s))
				if err != nil {
					t.Fatal(err)
				}
				if got, err := m.Match([]rune(s), r); err != nil {
					t.Fatalf("%s: %s", r, err)
				} else if got != want {
					t.Fatalf("unexpected match of %q in %s: %v", s, r, got)
				}
			}
		})
	}
}
