package seqre_test

import (
	"context"
	"math"
	"testing"

	"github.com/benbjohnson/seqre"
)

// NewRewriter returns a rewriter with the default configuration and no solver.
func NewRewriter() *seqre.Rewriter {
	return seqre.NewRewriter(seqre.NewArena(), nil, seqre.DefaultConfig())
}

// MustRewrite rewrites e and checks the status and the result.
func MustRewrite(tb testing.TB, rw *seqre.Rewriter, e *seqre.Expr, status seqre.Status, want *seqre.Expr) {
	tb.Helper()
	st, got := rw.Rewrite(e)
	if st != status {
		tb.Fatalf("unexpected status for %s: %s (result %v)", e, st, got)
	} else if got != want {
		tb.Fatalf("unexpected result for %s:\ngot:  %v\nwant: %v", e, got, want)
	}
}

// MustSimplify returns the simplified form of e.
func MustSimplify(tb testing.TB, rw *seqre.Rewriter, e *seqre.Expr) *seqre.Expr {
	tb.Helper()
	other, err := seqre.NewSimplifier(rw).Simplify(e)
	if err != nil {
		tb.Fatal(err)
	}
	return other
}

func TestStatus_String(t *testing.T) {
	if s := seqre.StatusRewrite2.String(); s != "rewrite2" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := seqre.Status(100).String(); s != "Status<100>" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestRewriter_Rewrite(t *testing.T) {
	t.Run("NoMatch", func(t *testing.T) {
		rw := NewRewriter()
		a := rw.Arena()
		for _, e := range []*seqre.Expr{
			a.Var("x", seqre.SortString),
			a.Str("abc"),
			a.ReFull(seqre.SortRegLan),
			a.Length(a.Var("x", seqre.SortString)),
			a.ReplaceAll(a.Str("a"), a.Str("a"), a.Str("b")),
		} {
			if st, got := rw.Rewrite(e); st != seqre.StatusFailed || got != nil {
				t.Fatalf("unexpected rewrite of %s: %s %v", e, st, got)
			}
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rw := NewRewriter().WithContext(ctx)
		a := rw.Arena()
		if st, _ := rw.Rewrite(a.Concat(a.Str("a"), a.Str("b"))); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})

	t.Run("RewriteApp", func(t *testing.T) {
		rw := NewRewriter()
		a := rw.Arena()
		if st, got := rw.RewriteApp(seqre.OpAdd, nil, a.Int(1), a.Int(2)); st != seqre.StatusDone || got != a.Int(3) {
			t.Fatalf("unexpected rewrite: %s %v", st, got)
		}
		if st, got := rw.RewriteApp(seqre.OpConcat, nil, a.Str("a"), a.Str("b")); st != seqre.StatusDone || got != a.Str("ab") {
			t.Fatalf("unexpected rewrite: %s %v", st, got)
		}
	})
}

func TestRewriter_Concat(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)

	t.Run("Literals", func(t *testing.T) {
		MustRewrite(t, rw, a.Concat(a.Str("ab"), a.Str("c")), seqre.StatusDone, a.Str("abc"))
	})
	t.Run("RightAssociate", func(t *testing.T) {
		MustRewrite(t, rw, a.Concat(a.Concat(x, a.Str("a")), y), seqre.StatusRewrite2, a.Concat(x, a.Concat(a.Str("a"), y)))
	})
	t.Run("Empty", func(t *testing.T) {
		MustRewrite(t, rw, a.Concat(a.Str(""), x), seqre.StatusDone, x)
		MustRewrite(t, rw, a.Concat(x, a.Str("")), seqre.StatusDone, x)
	})
	t.Run("MergeLiteralPrefix", func(t *testing.T) {
		MustRewrite(t, rw, a.Concat(a.Str("a"), a.Concat(a.Str("b"), x)), seqre.StatusDone, a.Concat(a.Str("ab"), x))
	})
	t.Run("NoCoalesce", func(t *testing.T) {
		config := seqre.DefaultConfig()
		config.CoalesceChars = false
		rw := seqre.NewRewriter(seqre.NewArena(), nil, config)
		a := rw.Arena()
		ua, ub := a.Unit(a.Char('a')), a.Unit(a.Char('b'))
		MustRewrite(t, rw, a.Str("ab"), seqre.StatusDone, a.Concat(ua, ub))
		if st, _ := rw.Rewrite(ua); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})
}

func TestRewriter_Unit(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	MustRewrite(t, rw, a.Unit(a.Char('a')), seqre.StatusDone, a.Str("a"))
	if st, _ := rw.Rewrite(a.Unit(a.Var("c", seqre.SortChar))); st != seqre.StatusFailed {
		t.Fatalf("unexpected status: %s", st)
	}
}

func TestRewriter_Length(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, c := a.Var("x", seqre.SortString), a.Var("c", seqre.SortChar)

	MustRewrite(t, rw, a.Length(a.Str("abc")), seqre.StatusDone, a.Int(3))
	MustRewrite(t, rw, a.Length(a.Concat(a.Str("ab"), a.Concat(x, a.Unit(c)))), seqre.StatusRewrite2, a.Add(a.Int(3), a.Length(x)))
}

func TestRewriter_Extract(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)

	t.Run("Constant", func(t *testing.T) {
		MustRewrite(t, rw, a.Extract(a.Str("hello"), a.Int(1), a.Int(3)), seqre.StatusDone, a.Str("ell"))
		MustRewrite(t, rw, a.Extract(a.Str("hello"), a.Int(3), a.Int(10)), seqre.StatusDone, a.Str("lo"))
		MustRewrite(t, rw, a.Extract(a.Str("hello"), a.Int(5), a.Int(1)), seqre.StatusDone, a.Str(""))
	})
	t.Run("MaxLength", func(t *testing.T) {
		MustRewrite(t, rw, a.Extract(a.Str("abc"), a.Int(1), a.Int(math.MaxInt64)), seqre.StatusDone, a.Str("bc"))
		MustRewrite(t, rw, a.Extract(a.Str("abc"), a.Int(0), a.Int(math.MaxInt64)), seqre.StatusDone, a.Str("abc"))
	})
	t.Run("NegativePosition", func(t *testing.T) {
		MustRewrite(t, rw, a.Extract(x, a.Int(-1), a.Int(2)), seqre.StatusDone, a.Str(""))
	})
	t.Run("NegativeLength", func(t *testing.T) {
		MustRewrite(t, rw, a.Extract(x, a.Int(0), a.Int(-2)), seqre.StatusDone, a.Str(""))
	})
	t.Run("Whole", func(t *testing.T) {
		MustRewrite(t, rw, a.Extract(x, a.Int(0), a.Length(x)), seqre.StatusDone, x)
	})
	t.Run("UnitPrefix", func(t *testing.T) {
		s := a.Concat(a.Str("ab"), x)
		MustRewrite(t, rw, a.Extract(s, a.Int(0), a.Int(2)), seqre.StatusDone, a.Concat(a.Unit(a.Char('a')), a.Unit(a.Char('b'))))
	})
	t.Run("SkipLength", func(t *testing.T) {
		y := a.Var("y", seqre.SortString)
		n := a.Var("n", seqre.SortInt)
		MustRewrite(t, rw, a.Extract(a.Concat(x, y), a.Length(x), n), seqre.StatusRewrite2, a.Extract(y, a.Int(0), n))
	})
}

func TestRewriter_Contains(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)

	MustRewrite(t, rw, a.Contains(a.Str("abc"), a.Str("b")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Contains(a.Str("abc"), a.Str("d")), seqre.StatusDone, a.False())
	MustRewrite(t, rw, a.Contains(x, a.Str("")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Contains(a.Str(""), x), seqre.StatusRewrite2, a.Eq(x, a.Str("")))
	MustRewrite(t, rw, a.Contains(a.Concat(x, a.Str("ab")), a.Str("ab")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Contains(a.Str("ab"), a.Concat(a.Str("abc"), x)), seqre.StatusDone, a.False())
	MustRewrite(t, rw, a.Contains(x, a.Extract(x, a.Int(1), a.Int(2))), seqre.StatusDone, a.True())
}

func TestRewriter_At(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)

	MustRewrite(t, rw, a.At(a.Str("abc"), a.Int(1)), seqre.StatusRewrite1, a.Unit(a.Char('b')))
	MustRewrite(t, rw, a.At(x, a.Int(-1)), seqre.StatusDone, a.Str(""))
	if got := MustSimplify(t, rw, a.At(a.Str("abc"), a.Int(2))); got != a.Str("c") {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestRewriter_Nth(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	c := a.Var("c", seqre.SortChar)
	MustRewrite(t, rw, a.Nth(a.Unit(c), a.Int(0)), seqre.StatusDone, c)
	MustRewrite(t, rw, a.NthI(a.Str("abc"), a.Int(2)), seqre.StatusDone, a.Char('c'))
}

func TestRewriter_Index(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)

	MustRewrite(t, rw, a.Index(a.Str("abcabc"), a.Str("c"), a.Int(3)), seqre.StatusDone, a.Int(5))
	MustRewrite(t, rw, a.Index(a.Str(""), a.Str("x"), a.Int(0)), seqre.StatusDone, a.Int(-1))
	MustRewrite(t, rw, a.Index(a.Str("ab"), a.Str(""), a.Int(3)), seqre.StatusDone, a.Int(-1))
	MustRewrite(t, rw, a.Index(x, a.Str("a"), a.Int(-1)), seqre.StatusDone, a.Int(-1))
	MustRewrite(t, rw, a.Index(x, x, a.Int(0)), seqre.StatusDone, a.Int(0))
	MustRewrite(t, rw, a.Index(x, a.Str(""), a.Int(0)), seqre.StatusDone, a.Int(0))
	MustRewrite(t, rw, a.LastIndex(a.Str("abcabc"), a.Str("bc")), seqre.StatusDone, a.Int(4))
}

func TestRewriter_Replace(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)

	MustRewrite(t, rw, a.Replace(a.Str("abcb"), a.Str("b"), a.Str("x")), seqre.StatusDone, a.Str("axcb"))
	MustRewrite(t, rw, a.Replace(x, y, y), seqre.StatusDone, x)
	MustRewrite(t, rw, a.Replace(x, x, y), seqre.StatusDone, y)
	MustRewrite(t, rw, a.Replace(x, a.Str(""), a.Str("a")), seqre.StatusRewrite1, a.Concat(a.Str("a"), x))
	MustRewrite(t, rw, a.Replace(a.Concat(x, y), x, a.Str("z")), seqre.StatusRewrite1, a.Concat(a.Str("z"), y))
}

func TestRewriter_Prefix(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)

	MustRewrite(t, rw, a.Prefix(a.Str("ab"), a.Str("abc")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Prefix(a.Str("b"), a.Str("abc")), seqre.StatusDone, a.False())
	MustRewrite(t, rw, a.Prefix(a.Str(""), x), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Prefix(a.Concat(a.Str("ab"), x), a.Concat(a.Str("ac"), y)), seqre.StatusDone, a.False())
}

func TestRewriter_Suffix(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)

	MustRewrite(t, rw, a.Suffix(x, x), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Suffix(a.Str(""), x), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.Suffix(x, a.Str("")), seqre.StatusRewrite3, a.Eq(x, a.Str("")))
	MustRewrite(t, rw, a.Suffix(a.Str("b"), a.Concat(x, a.Str("a"))), seqre.StatusDone, a.False())
}

func TestRewriter_StrCompare(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)

	MustRewrite(t, rw, a.StrLt(a.Str("a"), a.Str("b")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.StrLt(a.Str("ab"), a.Str("a")), seqre.StatusDone, a.False())
	MustRewrite(t, rw, a.StrLe(x, y), seqre.StatusRewrite2, a.Not(a.StrLt(y, x)))
}

func TestRewriter_Code(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()

	MustRewrite(t, rw, a.FromCode(a.Int(97)), seqre.StatusDone, a.Str("a"))
	MustRewrite(t, rw, a.FromCode(a.Int(-1)), seqre.StatusDone, a.Str(""))
	MustRewrite(t, rw, a.FromCode(a.Int(seqre.MaxChar+1)), seqre.StatusDone, a.Str(""))
	MustRewrite(t, rw, a.ToCode(a.Str("a")), seqre.StatusDone, a.Int(97))
	MustRewrite(t, rw, a.ToCode(a.Str("ab")), seqre.StatusDone, a.Int(-1))
	MustRewrite(t, rw, a.IsDigit(a.Str("7")), seqre.StatusDone, a.True())
	MustRewrite(t, rw, a.IsDigit(a.Str("x")), seqre.StatusDone, a.False())
}

func TestRewriter_StoI(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()

	t.Run("Constant", func(t *testing.T) {
		MustRewrite(t, rw, a.StoI(a.Str("123")), seqre.StatusDone, a.Int(123))
		MustRewrite(t, rw, a.StoI(a.Str("12a")), seqre.StatusDone, a.Int(-1))
		MustRewrite(t, rw, a.StoI(a.Str("")), seqre.StatusDone, a.Int(-1))
		MustRewrite(t, rw, a.StoI(a.Str("007")), seqre.StatusDone, a.Int(7))
	})
	t.Run("Overflow", func(t *testing.T) {
		if st, _ := rw.Rewrite(a.StoI(a.Str("99999999999999999999"))); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})
	t.Run("ItoS", func(t *testing.T) {
		n := a.Var("n", seqre.SortInt)
		MustRewrite(t, rw, a.StoI(a.ItoS(n)), seqre.StatusDone, a.Ite(a.Ge(n, a.Int(0)), n, a.Int(-1)))
	})
	t.Run("Unit", func(t *testing.T) {
		MustRewrite(t, rw, a.StoI(a.Unit(a.Char('7'))), seqre.StatusDone, a.Int(7))
	})
}

func TestRewriter_ItoS(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	MustRewrite(t, rw, a.ItoS(a.Int(-1)), seqre.StatusDone, a.Str(""))
	MustRewrite(t, rw, a.ItoS(a.Int(42)), seqre.StatusDone, a.Str("42"))
}

func TestRewriter_MkBoolApp(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x := a.Var("x", seqre.SortString)
	r1, r2 := a.ToRe(a.Str("a")), a.ReStar(a.ReAllChar(seqre.SortRegLan))
	p := a.Var("p", seqre.SortBool)

	t.Run("And", func(t *testing.T) {
		MustRewrite(t, rw, a.And(a.InRe(x, r1), a.InRe(x, r2)), seqre.StatusRewriteFull, a.InRe(x, a.ReInter(r1, r2)))
	})
	t.Run("AndNot", func(t *testing.T) {
		MustRewrite(t, rw, a.And(a.InRe(x, r1), a.Not(a.InRe(x, r2)), p), seqre.StatusRewriteFull,
			a.And(a.InRe(x, a.ReInter(r1, a.ReComplement(r2))), p))
	})
	t.Run("Or", func(t *testing.T) {
		MustRewrite(t, rw, a.Or(a.InRe(x, r1), a.InRe(x, r2)), seqre.StatusRewriteFull, a.InRe(x, a.ReUnion(r1, r2)))
	})
	t.Run("NoPair", func(t *testing.T) {
		if st, _ := rw.Rewrite(a.And(a.InRe(x, r1), p)); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})
}

func TestRewriter_MkEqCore(t *testing.T) {
	rw := NewRewriter()
	a := rw.Arena()
	x, y := a.Var("x", seqre.SortString), a.Var("y", seqre.SortString)

	t.Run("Refuted", func(t *testing.T) {
		e := a.Eq(a.Concat(a.Str("ab"), x), a.Concat(a.Str("ba"), y))
		MustRewrite(t, rw, e, seqre.StatusDone, a.False())
	})
	t.Run("Simplified", func(t *testing.T) {
		e := a.Eq(a.Concat(x, a.Str("a")), a.Str("ba"))
		MustRewrite(t, rw, e, seqre.StatusRewrite3, a.Eq(x, a.Str("b")))
	})
	t.Run("Unchanged", func(t *testing.T) {
		if st, _ := rw.Rewrite(a.Eq(x, y)); st != seqre.StatusFailed {
			t.Fatalf("unexpected status: %s", st)
		}
	})
}
