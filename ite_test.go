package seqre_test

import (
	"testing"

	"github.com/benbjohnson/seqre"
)

func TestRewriter_LiftITEs(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	p, q := a.Var("p", seqre.SortBool), a.Var("q", seqre.SortBool)
	ra, rb, rc := a.ToRe(a.Str("a")), a.ToRe(a.Str("b")), a.ToRe(a.Str("c"))

	t.Run("Concat", func(t *testing.T) {
		got := rw.LiftITEs(a.ReConcat(a.Ite(p, ra, rb), rc), false, false)
		if want := a.Ite(p, a.ReConcat(ra, rc), a.ReConcat(rb, rc)); got != want {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("SameCondition", func(t *testing.T) {
		got := rw.LiftITEs(a.ReConcat(a.Ite(p, ra, rb), a.Ite(p, rc, ra)), false, false)
		if want := a.Ite(p, a.ReConcat(ra, rc), a.ReConcat(rb, ra)); got != want {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("Order", func(t *testing.T) {
		r := a.ReUnion(a.Ite(p, ra, rb), a.Ite(q, rc, ra))
		got := rw.LiftITEs(r, true, false)
		want := a.Ite(q,
			a.Ite(p, a.ReUnion(ra, rc), a.ReUnion(rb, rc)),
			a.Ite(p, ra, a.ReUnion(rb, ra)))
		if got != want {
			t.Fatalf("unexpected result:\ngot:  %s\nwant: %s", got, want)
		}

		// Unions are kept as leaves unless requested.
		if got := rw.LiftITEs(r, false, false); got != r {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("Negation", func(t *testing.T) {
		if got := rw.LiftITEs(a.Ite(a.Not(p), ra, rb), false, false); got != a.Ite(p, rb, ra) {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("Star", func(t *testing.T) {
		got := rw.LiftITEs(a.ReStar(a.Ite(p, ra, a.ReAllChar(seqre.SortRegLan))), false, false)
		if want := a.Ite(p, a.ReStar(ra), a.ReFull(seqre.SortRegLan)); got != want {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("DeepConcat", func(t *testing.T) {
		r := a.Ite(p, ra, rb)
		for i := 0; i < 2000; i++ {
			r = a.ReConcat(r, rc)
		}
		if got := rw.LiftITEs(r, false, false); got.Op() != seqre.OpIte || got.Arg(0) != p {
			t.Fatalf("unexpected result: %s", got)
		}
	})

	t.Run("NoITE", func(t *testing.T) {
		r := a.ReConcat(ra, a.ReStar(rb))
		if got := rw.LiftITEs(r, true, true); got != r {
			t.Fatalf("unexpected result: %s", got)
		}
	})
}

func TestRewriter_ThrottledITELifting(t *testing.T) {
	config := seqre.DefaultConfig()
	config.ThrottledITELifting = true
	a := seqre.NewArena()
	rw := seqre.NewRewriter(a, nil, config)

	p, q := a.Var("p", seqre.SortBool), a.Var("q", seqre.SortBool)
	x := a.Var("x", seqre.SortString)
	ra, rb, rc := a.ToRe(a.Str("a")), a.ToRe(a.Str("b")), a.ToRe(a.Str("c"))

	t.Run("Seq", func(t *testing.T) {
		e := a.Length(a.Ite(p, a.Str("ab"), x))
		MustRewrite(t, rw, e, seqre.StatusRewrite2, a.Ite(p, a.Length(a.Str("ab")), a.Length(x)))

		if st, _ := seqre.NewRewriter(a, nil, seqre.DefaultConfig()).Rewrite(e); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})

	t.Run("Deep", func(t *testing.T) {
		e := a.Length(a.Ite(p, a.Concat(a.Concat(x, a.Str("a")), a.Str("b")), x))
		if st, _ := rw.Rewrite(e); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})

	t.Run("Negation", func(t *testing.T) {
		MustRewrite(t, rw, a.Ite(a.Not(p), ra, rb), seqre.StatusRewrite1, a.Ite(p, rb, ra))
	})

	t.Run("Redundant", func(t *testing.T) {
		MustRewrite(t, rw, a.Ite(p, a.Ite(p, ra, rb), rc), seqre.StatusRewrite1, a.Ite(p, ra, rc))
		MustRewrite(t, rw, a.Ite(p, rc, a.Ite(p, ra, rb)), seqre.StatusRewrite1, a.Ite(p, rc, rb))
	})

	t.Run("Order", func(t *testing.T) {
		e := a.Ite(p, a.Ite(q, ra, rb), rc)
		MustRewrite(t, rw, e, seqre.StatusRewrite1, a.Ite(q, a.Ite(p, ra, rc), a.Ite(p, rb, rc)))

		if st, _ := rw.Rewrite(a.Ite(q, a.Ite(p, ra, rb), rc)); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})
}
