package seqre

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Status is the outcome of a single rewrite step.
type Status int

const (
	// StatusFailed means no rule applied. The term is kept as is.
	StatusFailed Status = iota

	// StatusDone means the result is fully simplified.
	StatusDone

	// The result must be simplified again, down to the given depth.
	StatusRewrite1
	StatusRewrite2
	StatusRewrite3
	StatusRewriteFull
)

var statuses = [...]string{
	StatusFailed:      "failed",
	StatusDone:        "done",
	StatusRewrite1:    "rewrite1",
	StatusRewrite2:    "rewrite2",
	StatusRewrite3:    "rewrite3",
	StatusRewriteFull: "rewrite_full",
}

// String returns the string representation of the status.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statuses) {
		return statuses[s]
	}
	return fmt.Sprintf("Status<%d>", s)
}

// Rewriter simplifies applications of sequence, string and regex operators.
// A Rewriter is bound to one Arena and is not safe for concurrent use.
type Rewriter struct {
	arena    *Arena
	config   Config
	cache    *opCache
	ba       *BooleanAlgebra
	compiler *RegexCompiler
	ctx      context.Context
}

// NewRewriter returns a new rewriter over the arena. solver may be nil, in
// which case automaton complement and intersection are not available.
func NewRewriter(a *Arena, solver Solver, config Config) *Rewriter {
	ba := NewBooleanAlgebra(a, solver)
	return &Rewriter{
		arena:    a,
		config:   config,
		cache:    newOpCache(config.MaxCacheSize),
		ba:       ba,
		compiler: NewRegexCompiler(a, ba),
		ctx:      context.Background(),
	}
}

// WithContext returns a copy of the rewriter that reports no match once ctx
// is done. The copy shares the cache of rw.
func (rw *Rewriter) WithContext(ctx context.Context) *Rewriter {
	other := *rw
	other.ctx = ctx
	other.compiler = rw.compiler.WithContext(ctx)
	return &other
}

// Arena returns the arena the rewriter builds terms in.
func (rw *Rewriter) Arena() *Arena { return rw.arena }

// Config returns the rewriter configuration.
func (rw *Rewriter) Config() Config { return rw.config }

// ResetCache removes all memoized results.
func (rw *Rewriter) ResetCache() { rw.cache.clear() }

// Rewrite applies one simplification step to e, whose arguments are
// assumed to be simplified already. It returns StatusFailed and a nil
// expression if no rule applies.
func (rw *Rewriter) Rewrite(e *Expr) (Status, *Expr) {
	if rw.ctx.Err() != nil {
		return StatusFailed, nil
	}

	st, result := rw.rewrite(e)
	if st == StatusFailed && rw.config.ThrottledITELifting {
		st, result = rw.liftITEsThrottled(e)
	}
	if st == StatusFailed {
		return st, nil
	}

	assert(result.sort == e.sort, "%s: rewrite changed sort: %s -> %s", e.op, e.sort, result.sort)
	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{"status": st, "result": result}).Tracef("rewrite %s", e)
	}
	return st, result
}

// RewriteApp applies one simplification step to the application of op to
// args. Applications folded by the arena constructors are done.
func (rw *Rewriter) RewriteApp(op Op, params []int, args ...*Expr) (Status, *Expr) {
	e := rw.arena.App(op, params, args...)
	if e.op != op {
		return StatusDone, e
	}
	return rw.Rewrite(e)
}

func (rw *Rewriter) rewrite(e *Expr) (Status, *Expr) {
	args := e.args
	switch e.op {
	case OpTrue, OpFalse, OpInt, OpChar, OpVar, OpBoundVar:
		return StatusFailed, nil
	case OpNot, OpAdd, OpMul, OpLe, OpCharLe:
		return StatusFailed, nil
	case OpAnd:
		return rw.MkBoolApp(true, args)
	case OpOr:
		return rw.MkBoolApp(false, args)
	case OpEq:
		return rw.MkEqCore(args[0], args[1])
	case OpIte:
		if e.sort.IsRe() && rw.config.ThrottledITELifting {
			return rw.rewriteReITE(args[0], args[1], args[2])
		}
		return StatusFailed, nil

	case OpSeqEmpty:
		return StatusFailed, nil
	case OpString:
		if rw.config.CoalesceChars {
			return StatusFailed, nil
		}
		return rw.mkStrUnits(e)
	case OpUnit:
		return rw.mkSeqUnit(args[0])
	case OpConcat:
		return rw.mkSeqConcat(args[0], args[1])
	case OpLength:
		return rw.mkSeqLength(args[0])
	case OpExtract:
		return rw.mkSeqExtract(args[0], args[1], args[2])
	case OpContains:
		return rw.mkSeqContains(args[0], args[1])
	case OpAt:
		return rw.mkSeqAt(args[0], args[1])
	case OpNth:
		return rw.mkSeqNth(args[0], args[1])
	case OpNthI:
		return rw.mkSeqNthI(args[0], args[1])
	case OpNthU:
		return StatusFailed, nil
	case OpIndex:
		if len(args) == 2 {
			return StatusRewrite1, rw.arena.Index(args[0], args[1], rw.arena.Int(0))
		}
		return rw.mkSeqIndex(args[0], args[1], args[2])
	case OpLastIndex:
		return rw.mkSeqLastIndex(args[0], args[1])
	case OpReplace:
		return rw.mkSeqReplace(args[0], args[1], args[2])
	case OpReplaceAll, OpReplaceRe, OpReplaceReAll:
		return StatusFailed, nil
	case OpPrefix:
		return rw.mkSeqPrefix(args[0], args[1])
	case OpSuffix:
		return rw.mkSeqSuffix(args[0], args[1])
	case OpInRe:
		return rw.mkSeqInRe(args[0], args[1])
	case OpStoI:
		return rw.mkStrStoI(args[0])
	case OpItoS:
		return rw.mkStrItoS(args[0])
	case OpToCode:
		return rw.mkStrToCode(args[0])
	case OpFromCode:
		return rw.mkStrFromCode(args[0])
	case OpIsDigit:
		return rw.mkStrIsDigit(args[0])
	case OpStrLt:
		return rw.mkStrLt(args[0], args[1])
	case OpStrLe:
		return rw.mkStrLe(args[0], args[1])

	case OpReEmpty, OpReFull, OpReAllChar, OpReOfPred:
		return StatusFailed, nil
	case OpToRe:
		return StatusFailed, nil
	case OpReConcat:
		return rw.mkReConcat(args[0], args[1])
	case OpReUnion:
		return rw.mkReUnion(args[0], args[1])
	case OpReInter:
		return rw.mkReInter(args[0], args[1])
	case OpReDiff:
		return rw.mkReDiff(args[0], args[1])
	case OpReComplement:
		return rw.mkReComplement(args[0])
	case OpReStar:
		return rw.mkReStar(args[0])
	case OpRePlus:
		return rw.mkRePlus(args[0])
	case OpReOpt:
		return rw.mkReOpt(args[0])
	case OpReLoop:
		return rw.mkReLoop(e)
	case OpRePower:
		return rw.mkRePower(e)
	case OpReRange:
		return StatusFailed, nil
	case OpReReverse:
		return rw.mkReReverse(args[0])
	case OpReDerivative:
		return rw.mkReDerivative(args[0], args[1])

	default:
		panic(fmt.Sprintf("unreachable: rewrite of unknown operator %s", e.op))
	}
}

// MkBoolApp merges regex memberships of the same sequence within a
// conjunction (isAnd) or disjunction of args.
//
//	x in r1 and x in r2     => x in (r1 inter r2)
//	x in r1 and not x in r2 => x in (r1 inter comp(r2))
//	x in r1 or x in r2      => x in (r1 union r2)
func (rw *Rewriter) MkBoolApp(isAnd bool, args []*Expr) (Status, *Expr) {
	a := rw.arena
	membership := func(e *Expr) (x, r *Expr, neg, ok bool) {
		if e.op == OpNot {
			e, neg = e.args[0], true
		}
		if e.op != OpInRe {
			return nil, nil, false, false
		}
		return e.args[0], e.args[1], neg, true
	}

	// Memberships are kept in order of first occurrence.
	var keys []*Expr
	pos, neg := make(map[*Expr]*Expr), make(map[*Expr]*Expr)
	var others []*Expr
	foundPair := false
	for _, arg := range args {
		x, r, isNeg, ok := membership(arg)
		if !ok {
			others = append(others, arg)
			continue
		}
		if pos[x] == nil && neg[x] == nil {
			keys = append(keys, x)
		}

		if !isNeg {
			if z := pos[x]; z != nil {
				if isAnd {
					pos[x] = a.ReInter(z, r)
				} else {
					pos[x] = a.ReUnion(z, r)
				}
				foundPair = true
			} else {
				pos[x] = r
			}
			foundPair = foundPair || neg[x] != nil
		} else {
			// not x in z and not x in r == not x in (z union r)
			if z := neg[x]; z != nil {
				if isAnd {
					neg[x] = a.ReUnion(z, r)
				} else {
					neg[x] = a.ReInter(z, r)
				}
				foundPair = true
			} else {
				neg[x] = r
			}
			foundPair = foundPair || pos[x] != nil
		}
	}
	if !foundPair {
		return StatusFailed, nil
	}

	var newArgs []*Expr
	for _, x := range keys {
		y, z := pos[x], neg[x]
		switch {
		case y != nil && z != nil:
			if isAnd {
				newArgs = append(newArgs, a.InRe(x, a.ReInter(y, a.ReComplement(z))))
			} else {
				newArgs = append(newArgs, a.InRe(x, a.ReUnion(y, a.ReComplement(z))))
			}
		case y != nil:
			newArgs = append(newArgs, a.InRe(x, y))
		default:
			newArgs = append(newArgs, a.InRe(x, a.ReComplement(z)))
		}
	}
	newArgs = append(newArgs, others...)

	if isAnd {
		return StatusRewriteFull, a.And(newArgs...)
	}
	return StatusRewriteFull, a.Or(newArgs...)
}

// MkEqCore simplifies the equality of two sequences or two regexes.
func (rw *Rewriter) MkEqCore(l, r *Expr) (Status, *Expr) {
	a := rw.arena
	switch {
	case l.sort.IsRe():
		return rw.reduceReEq(l, r)
	case !l.sort.IsSeq():
		return StatusFailed, nil
	}

	result, eqs := rw.ReduceEq(l, r)
	switch result {
	case EqRefuted:
		return StatusDone, a.False()
	case EqUnchanged:
		return StatusFailed, nil
	}

	fmls := make([]*Expr, len(eqs))
	for i, eq := range eqs {
		fmls[i] = a.Eq(eq.L, eq.R)
	}
	return StatusRewrite3, a.And(fmls...)
}
