package seqre_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/benbjohnson/seqre"
)

func TestExprEvaluator_Evaluate(t *testing.T) {
	a := seqre.NewArena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)
	str, i := a.Str, func(v int64) *seqre.Expr { return a.Int(v) }
	all := a.ReStar(a.ReAllChar(seqre.SortRegLan))
	ee := seqre.NewExprEvaluator(a, map[string]*seqre.Expr{"x": str("abc")})

	for _, tt := range []struct {
		name string
		expr *seqre.Expr
		want *seqre.Expr
	}{
		{"Length", a.Length(x), i(3)},
		{"Concat", a.Concat(x, str("d")), str("abcd")},
		{"Extract", a.Extract(x, i(1), i(5)), str("bc")},
		{"ExtractNegative", a.Extract(x, i(-1), i(2)), str("")},
		{"ExtractZero", a.Extract(x, i(1), i(0)), str("")},
		{"Contains", a.Contains(x, str("bc")), a.True()},
		{"At", a.At(x, i(2)), str("c")},
		{"AtOutOfBounds", a.At(x, i(3)), str("")},
		{"Index", a.Index(x, str("c"), i(0)), i(2)},
		{"IndexEmptyBase", a.Index(str(""), str("x"), i(0)), i(-1)},
		{"IndexEmpty", a.Index(x, str(""), i(3)), i(3)},
		{"IndexPastEnd", a.Index(x, str("a"), i(4)), i(-1)},
		{"LastIndex", a.LastIndex(a.Concat(x, x), str("b")), i(4)},
		{"LastIndexEmpty", a.LastIndex(x, str("")), i(3)},
		{"Replace", a.Replace(x, str("b"), str("zz")), str("azzc")},
		{"ReplaceEmpty", a.Replace(x, str(""), str("z")), str("zabc")},
		{"ReplaceAll", a.ReplaceAll(str("aba"), str("a"), str("c")), str("cbc")},
		{"ReplaceAllEmpty", a.ReplaceAll(x, str(""), str("z")), str("abc")},
		{"ReplaceRe", a.ReplaceRe(str("abab"), a.ReStar(a.ToRe(str("ab"))), str("z")), str("zab")},
		{"ReplaceReAll", a.ReplaceReAll(str("abab"), a.ReStar(a.ToRe(str("ab"))), str("z")), str("zz")},
		{"ReplaceReNoMatch", a.ReplaceRe(x, a.ToRe(str("d")), str("z")), str("abc")},
		{"Prefix", a.Prefix(str("ab"), x), a.True()},
		{"Suffix", a.Suffix(str("bc"), x), a.True()},
		{"SuffixLonger", a.Suffix(str("abcd"), x), a.False()},
		{"StoI", a.StoI(str("012")), i(12)},
		{"StoIEmpty", a.StoI(str("")), i(-1)},
		{"StoINonDigit", a.StoI(str("1a")), i(-1)},
		{"ItoS", a.ItoS(i(42)), str("42")},
		{"ItoSNegative", a.ItoS(i(-3)), str("")},
		{"ToCode", a.ToCode(str("a")), i(97)},
		{"ToCodeLong", a.ToCode(x), i(-1)},
		{"FromCode", a.FromCode(i(98)), str("b")},
		{"FromCodeNegative", a.FromCode(i(-1)), str("")},
		{"IsDigit", a.IsDigit(str("7")), a.True()},
		{"StrLt", a.StrLt(str("ab"), str("b")), a.True()},
		{"StrLtEqual", a.StrLt(str("ab"), str("ab")), a.False()},
		{"StrLe", a.StrLe(str("ab"), str("ab")), a.True()},
		{"InRe", a.InRe(x, a.ReConcat(all, a.ToRe(str("c")))), a.True()},
		{"InReLoop", a.InRe(x, a.ReLoop(a.ReRange(str("a"), str("b")), 1, 2)), a.False()},
		{"InReComplement", a.InRe(x, a.ReComplement(a.ToRe(str("abc")))), a.False()},
		{"Ite", a.Ite(a.Eq(x, str("abc")), i(1), a.Length(y)), i(1)},
		{"Arith", a.Add(a.Length(x), a.Mul(i(2), a.Length(x))), i(9)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := ee.Evaluate(tt.expr); err != nil {
				t.Fatal(err)
			} else if got != tt.want {
				t.Fatalf("unexpected value: %s", got)
			}
		})
	}

	t.Run("Units", func(t *testing.T) {
		s := a.Var("s", seqre.SeqSort(seqre.SortInt))
		ee := seqre.NewExprEvaluator(a, map[string]*seqre.Expr{"s": a.Concat(a.Unit(i(1)), a.Unit(i(2)))})
		if got, err := ee.Evaluate(a.Length(s)); err != nil {
			t.Fatal(err)
		} else if got != i(2) {
			t.Fatalf("unexpected value: %s", got)
		}
		if got, err := ee.Evaluate(a.Nth(s, i(1))); err != nil {
			t.Fatal(err)
		} else if got != i(2) {
			t.Fatalf("unexpected value: %s", got)
		}
	})

	t.Run("ErrUnboundVar", func(t *testing.T) {
		if _, err := ee.Evaluate(a.Length(y)); !errors.Is(err, seqre.ErrUnboundVar) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrNotSupported", func(t *testing.T) {
		for _, e := range []*seqre.Expr{
			a.Nth(x, i(5)),
			a.StoI(str("99999999999999999999")),
			a.Eq(a.ToRe(x), a.ToRe(str("abc"))),
		} {
			if _, err := ee.Evaluate(e); !errors.Is(err, seqre.ErrNotSupported) {
				t.Fatalf("unexpected error for %s: %v", e, err)
			}
		}
	})
}

// termGenerator builds random ground terms over short strings.
type termGenerator struct {
	rand  *rand.Rand
	arena *seqre.Arena
}

func (g *termGenerator) str(depth int) *seqre.Expr {
	a := g.arena
	if depth == 0 || g.rand.Intn(3) == 0 {
		words := []string{"", "a", "b", "ab", "ba", "aab", "01", "10"}
		return a.Str(words[g.rand.Intn(len(words))])
	}
	switch g.rand.Intn(5) {
	case 0:
		return a.Concat(g.str(depth-1), g.str(depth-1))
	case 1:
		return a.Extract(g.str(depth-1), g.int(depth-1), g.int(depth-1))
	case 2:
		return a.At(g.str(depth-1), g.int(depth-1))
	case 3:
		return a.Replace(g.str(depth-1), g.str(depth-1), g.str(depth-1))
	default:
		return a.ItoS(g.int(depth - 1))
	}
}

func (g *termGenerator) int(depth int) *seqre.Expr {
	a := g.arena
	if depth == 0 || g.rand.Intn(3) == 0 {
		return a.Int(int64(g.rand.Intn(5) - 1))
	}
	switch g.rand.Intn(5) {
	case 0:
		return a.Length(g.str(depth - 1))
	case 1:
		return a.Index(g.str(depth-1), g.str(depth-1), g.int(depth-1))
	case 2:
		return a.LastIndex(g.str(depth-1), g.str(depth-1))
	case 3:
		return a.StoI(g.str(depth - 1))
	default:
		return a.Add(g.int(depth-1), g.int(depth-1))
	}
}

func (g *termGenerator) bool(depth int) *seqre.Expr {
	a := g.arena
	switch g.rand.Intn(6) {
	case 0:
		return a.Contains(g.str(depth), g.str(depth))
	case 1:
		return a.Prefix(g.str(depth), g.str(depth))
	case 2:
		return a.Suffix(g.str(depth), g.str(depth))
	case 3:
		return a.Eq(g.str(depth), g.str(depth))
	case 4:
		return a.Le(g.int(depth), g.int(depth))
	default:
		return a.InRe(g.str(depth), RandomRegex(g.rand, a, 2))
	}
}

// Ensure simplification preserves the value of ground terms.
func TestSimplifier_Evaluate(t *testing.T) {
	rand := rand.New(rand.NewSource(0))
	for i := 0; i < 200; i++ {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			rw := NewRewriter()
			a := rw.Arena()
			g := &termGenerator{rand: rand, arena: a}

			var e *seqre.Expr
			switch i % 3 {
			case 0:
				e = g.str(3)
			case 1:
				e = g.int(3)
			default:
				e = g.bool(2)
			}

			ee := seqre.NewExprEvaluator(a, nil)
			want, err := ee.Evaluate(e)
			if err != nil {
				t.Fatal(err)
			}
			other := MustSimplify(t, rw, e)
			if got, err := ee.Evaluate(other); err != nil {
				t.Fatal(err)
			} else if got != want {
				t.Fatalf("unexpected value for %s:\nsimplified: %s\ngot:  %s\nwant: %s", e, other, got, want)
			}
		})
	}
}
