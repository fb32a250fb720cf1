package seqre_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/seqre"
)

func TestRewriter_Nullable(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)
	n := a.Var("n", seqre.SortInt)
	p := a.Var("p", seqre.SortBool)
	ra, rb := a.ToRe(a.Str("a")), a.ToRe(a.Str("b"))

	for _, tt := range []struct {
		name string
		r    *seqre.Expr
		want *seqre.Expr
	}{
		{"Literal", ra, a.False()},
		{"EmptyLiteral", a.ToRe(a.Str("")), a.True()},
		{"Var", a.ToRe(x), a.Eq(a.Str(""), x)},
		{"Star", a.ReStar(ra), a.True()},
		{"Plus", a.RePlus(ra), a.False()},
		{"Concat", a.ReConcat(a.ReStar(ra), rb), a.False()},
		{"Union", a.ReUnion(ra, a.ReOpt(rb)), a.True()},
		{"Inter", a.ReInter(a.ReFull(seqre.SortRegLan), a.ReAllChar(seqre.SortRegLan)), a.False()},
		{"Diff", a.ReDiff(a.ReStar(ra), a.ReOpt(rb)), a.False()},
		{"Complement", a.ReComplement(ra), a.True()},
		{"Range", a.ReRange(a.Str("a"), a.Str("z")), a.False()},
		{"LoopZero", a.ReLoop(ra, 0, 2), a.True()},
		{"Loop", a.ReLoop(ra, 2, 3), a.False()},
		{"LoopFrom", a.ReLoopFrom(a.ReStar(ra), 1), a.True()},
		{"Ite", a.Ite(p, a.ReStar(ra), ra), p},
		{"Symbolic", a.ReLoopTerm(ra, n, nil), a.InRe(a.Str(""), a.ReLoopTerm(ra, n, nil))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := rw.Nullable(tt.r); got != tt.want {
				t.Fatalf("unexpected nullable: %s", got)
			}
		})
	}
}

func TestRewriter_Derivative(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortChar)
	ra, rb := a.ToRe(a.Str("a")), a.ToRe(a.Str("b"))
	empty, eps := a.ReEmpty(seqre.SortRegLan), a.ToRe(a.Str(""))

	MustDerivative := func(tb testing.TB, ele, r *seqre.Expr) *seqre.Expr {
		tb.Helper()
		d, err := rw.Derivative(ele, r)
		if err != nil {
			tb.Fatal(err)
		}
		return d
	}

	t.Run("Literal", func(t *testing.T) {
		if got := MustDerivative(t, a.Char('a'), ra); got != eps {
			t.Fatalf("unexpected derivative: %s", got)
		} else if got := MustDerivative(t, a.Char('b'), ra); got != empty {
			t.Fatalf("unexpected derivative: %s", got)
		}
		if got, want := MustDerivative(t, x, ra), a.Ite(a.Eq(x, a.Char('a')), eps, empty); got != want {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Star", func(t *testing.T) {
		if got := MustDerivative(t, a.Char('a'), a.ReStar(ra)); got != a.ReStar(ra) {
			t.Fatalf("unexpected derivative: %s", got)
		} else if got := MustDerivative(t, a.Char('b'), a.ReStar(ra)); got != empty {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Concat", func(t *testing.T) {
		got := MustDerivative(t, x, a.ReConcat(ra, rb))
		if want := a.Ite(a.Eq(x, a.Char('a')), rb, empty); got != want {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Range", func(t *testing.T) {
		r := a.ReRange(a.Str("a"), a.Str("c"))
		if got := MustDerivative(t, a.Char('b'), r); got != eps {
			t.Fatalf("unexpected derivative: %s", got)
		} else if got := MustDerivative(t, a.Char('d'), r); got != empty {
			t.Fatalf("unexpected derivative: %s", got)
		}
		cond := a.And(a.CharLe(a.Char('a'), x), a.CharLe(x, a.Char('c')))
		if got, want := MustDerivative(t, x, r), a.Ite(cond, eps, empty); got != want {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Complement", func(t *testing.T) {
		if got := MustDerivative(t, a.Char('b'), a.ReComplement(ra)); got != a.ReFull(seqre.SortRegLan) {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Ite", func(t *testing.T) {
		p := a.Var("p", seqre.SortBool)
		if got, want := MustDerivative(t, a.Char('a'), a.Ite(p, ra, rb)), a.Ite(p, eps, empty); got != want {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("Loop", func(t *testing.T) {
		if got := MustDerivative(t, a.Char('a'), a.ReLoop(ra, 2, 3)); got != a.ReLoop(ra, 1, 2) {
			t.Fatalf("unexpected derivative: %s", got)
		} else if got := MustDerivative(t, a.Char('a'), a.ReLoop(ra, 3, 2)); got != empty {
			t.Fatalf("unexpected derivative: %s", got)
		}
	})

	t.Run("ErrNotSupported", func(t *testing.T) {
		n := a.Var("n", seqre.SortInt)
		if _, err := rw.Derivative(x, a.ReReverse(ra)); !errors.Is(err, seqre.ErrNotSupported) {
			t.Fatalf("unexpected error: %v", err)
		} else if _, err := rw.Derivative(x, a.ReLoopTerm(ra, n, nil)); !errors.Is(err, seqre.ErrNotSupported) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := rw.WithContext(ctx).Derivative(x, a.ReStar(rb)); err != seqre.ErrCanceled {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRewriter_Successors(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortChar)
	ra, rb := a.ToRe(a.Str("a")), a.ToRe(a.Str("b"))
	eps := a.ToRe(a.Str(""))

	t.Run("Concat", func(t *testing.T) {
		cofs, err := rw.Successors(x, a.ReConcat(ra, rb))
		if err != nil {
			t.Fatal(err)
		} else if len(cofs) != 1 {
			t.Fatalf("unexpected successors: %v", cofs)
		} else if !cofs[0].Cond.IsTrue() || cofs[0].Re != rb {
			t.Fatalf("unexpected successor: %s -> %s", cofs[0].Cond, cofs[0].Re)
		}
	})

	t.Run("Union", func(t *testing.T) {
		cofs, err := rw.Successors(x, a.ReUnion(ra, rb))
		if err != nil {
			t.Fatal(err)
		} else if len(cofs) != 2 {
			t.Fatalf("unexpected successors: %v", cofs)
		}
		for _, cof := range cofs {
			if !cof.Cond.IsTrue() || cof.Re != eps {
				t.Fatalf("unexpected successor: %s -> %s", cof.Cond, cof.Re)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if cofs, err := rw.Successors(a.Char('c'), a.ReUnion(ra, rb)); err != nil {
			t.Fatal(err)
		} else if len(cofs) != 0 {
			t.Fatalf("unexpected successors: %v", cofs)
		}
	})

	t.Run("Opaque", func(t *testing.T) {
		p := a.Var("p", seqre.SortBool)
		cofs, err := rw.Successors(a.Char('a'), a.Ite(p, ra, rb))
		if err != nil {
			t.Fatal(err)
		} else if len(cofs) != 1 || cofs[0].Cond != p || cofs[0].Re != eps {
			t.Fatalf("unexpected successors: %v", cofs)
		}
	})
}

func TestMatcher_Match(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	all := a.ReStar(a.ReAllChar(seqre.SortRegLan))
	r := a.ReConcat(all, a.ReConcat(a.ToRe(a.Str("b")), all))

	m := seqre.NewMatcher(rw)
	for _, tt := range []struct {
		s    string
		want bool
	}{
		{"abc", true},
		{"b", true},
		{"ac", false},
		{"", false},
	} {
		t.Run(tt.s, func(t *testing.T) {
			if got, err := m.Match([]rune(tt.s), r); err != nil {
				t.Fatal(err)
			} else if got != tt.want {
				t.Fatalf("unexpected match: %v", got)
			}
		})
	}

	// The residuals are the initial regex and the universal language.
	if n := m.NumStates(); n != 2 {
		t.Fatalf("unexpected state count: %d", n)
	}

	t.Run("Loop", func(t *testing.T) {
		r := a.ReLoop(a.ReUnion(a.ToRe(a.Str("ab")), a.ToRe(a.Str("c"))), 1, 2)
		m := seqre.NewMatcher(rw)
		for s, want := range map[string]bool{
			"ab":   true,
			"c":    true,
			"abc":  true,
			"cc":   true,
			"":     false,
			"a":    false,
			"ccc":  false,
			"abab": true,
		} {
			if got, err := m.Match([]rune(s), r); err != nil {
				t.Fatal(err)
			} else if got != want {
				t.Fatalf("unexpected match for %q: %v", s, got)
			}
		}
	})

	t.Run("ErrNotSupported", func(t *testing.T) {
		x := a.Var("x", seqre.SortString)
		if _, err := seqre.NewMatcher(rw).Match([]rune("a"), a.ToRe(x)); !errors.Is(err, seqre.ErrNotSupported) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
