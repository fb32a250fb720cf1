package seqre

// topCond returns the condition of r if r is an if-then-else.
func topCond(r *Expr) *Expr {
	if r.op == OpIte {
		return r.args[0]
	}
	return nil
}

// restrict returns the branch of r selected by the value of cond. r must
// not contain cond below its top.
func restrict(r, cond *Expr, value bool) *Expr {
	if r.op != OpIte || r.args[0] != cond {
		return r
	} else if value {
		return r.args[1]
	}
	return r.args[2]
}

// mkNode returns the decision node on cond over t and e.
func (rw *Rewriter) mkNode(cond, t, e *Expr) *Expr {
	if cond.op == OpNot {
		cond, t, e = cond.args[0], e, t
	}
	return rw.arena.Ite(cond, t, e)
}

// combine applies op to two regexes in BDD form and returns the result in
// BDD form. For OpIte, the result is ite(cond, a, b). Conditions with a
// larger id are placed outside conditions with a smaller id.
func (rw *Rewriter) combine(op Op, a, b, cond *Expr) *Expr {
	if op == OpIte {
		if cond.op == OpNot {
			cond, a, b = cond.args[0], b, a
		}
		switch {
		case cond.IsTrue():
			return a
		case cond.IsFalse():
			return b
		case a == b:
			return a
		}
	}

	if result := rw.cache.find(op, a, b, cond); result != nil {
		return result
	}
	result := rw.combineOf(op, a, b, cond)
	rw.cache.insert(op, a, b, cond, result)
	return result
}

func (rw *Rewriter) combineOf(op Op, a, b, cond *Expr) *Expr {
	top := topCond(a)
	if c := topCond(b); c != nil && (top == nil || c.id > top.id) {
		top = c
	}

	if op == OpIte {
		if top == nil || cond.id > top.id {
			// cond is the outermost condition.
			return rw.mkNode(cond, a, b)
		} else if cond == top {
			return rw.mkNode(cond, restrict(a, cond, true), restrict(b, cond, false))
		}
		return rw.mkNode(top,
			rw.combine(OpIte, restrict(a, top, true), restrict(b, top, true), cond),
			rw.combine(OpIte, restrict(a, top, false), restrict(b, top, false), cond))
	}

	if top == nil {
		return rw.mkLeaf(op, nil, a, b)
	}
	return rw.mkNode(top,
		rw.combine(op, restrict(a, top, true), restrict(b, top, true), nil),
		rw.combine(op, restrict(a, top, false), restrict(b, top, false), nil))
}

// mkLeaf returns the application of op to regexes free of if-then-else.
// Rewrites that finish in one step and keep the result free of
// if-then-else are applied.
func (rw *Rewriter) mkLeaf(op Op, params []int, args ...*Expr) *Expr {
	e := rw.arena.App(op, params, args...)
	if st, result := rw.rewrite(e); st == StatusDone && result.op != OpIte {
		return result
	}
	return e
}

// mapLeaves returns the BDD r with fn applied to each of its leaves.
func (rw *Rewriter) mapLeaves(r *Expr, fn func(*Expr) *Expr) *Expr {
	memo := make(map[*Expr]*Expr)
	var visit func(r *Expr) *Expr
	visit = func(r *Expr) *Expr {
		if other, ok := memo[r]; ok {
			return other
		}
		var other *Expr
		if r.op == OpIte {
			other = rw.mkNode(r.args[0], visit(r.args[1]), visit(r.args[2]))
		} else {
			other = fn(r)
		}
		memo[r] = other
		return other
	}
	return visit(r)
}

// LiftITEs moves the if-then-else terms of r to the top, returning r in
// BDD form. Union and intersection are lifted over only if overUnion and
// overInter are set; otherwise they are kept as leaves.
func (rw *Rewriter) LiftITEs(r *Expr, overUnion, overInter bool) *Expr {
	assert(r.sort.IsRe(), "lift ites: non-regex sort: %s", r.sort)

	// Children are lifted before their parent.
	memo := make(map[*Expr]*Expr)
	stack := []*Expr{r}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		if _, ok := memo[x]; ok {
			stack = stack[:len(stack)-1]
			continue
		}

		pending := false
		for _, child := range liftOperands(x) {
			if _, ok := memo[child]; !ok {
				stack, pending = append(stack, child), true
			}
		}
		if pending {
			continue
		}
		stack = stack[:len(stack)-1]
		memo[x] = rw.liftITE(x, memo, overUnion, overInter)
	}
	return memo[r]
}

// liftOperands returns the regex operands of r that are lifted before r.
func liftOperands(r *Expr) []*Expr {
	switch r.op {
	case OpIte:
		return r.args[1:]
	case OpReConcat, OpReUnion, OpReInter, OpReDiff:
		return r.args
	case OpReComplement, OpReStar, OpRePlus, OpReOpt, OpReReverse, OpRePower, OpReLoop:
		return r.args[:1]
	default:
		return nil
	}
}

// liftITE returns r in BDD form given the lifted operands in memo.
func (rw *Rewriter) liftITE(r *Expr, memo map[*Expr]*Expr, overUnion, overInter bool) *Expr {
	switch r.op {
	case OpIte:
		return rw.combine(OpIte, memo[r.args[1]], memo[r.args[2]], r.args[0])
	case OpReConcat:
		return rw.combine(r.op, memo[r.args[0]], memo[r.args[1]], nil)
	case OpReUnion, OpReInter, OpReDiff:
		x, y := memo[r.args[0]], memo[r.args[1]]
		if (r.op == OpReUnion && !overUnion) || (r.op != OpReUnion && !overInter) {
			return rw.arena.Rebuild(r, []*Expr{x, y})
		}
		return rw.combine(r.op, x, y, nil)
	case OpReComplement, OpReStar, OpRePlus, OpReOpt, OpReReverse, OpRePower:
		return rw.mapLeaves(memo[r.args[0]], func(leaf *Expr) *Expr {
			return rw.mkLeaf(r.op, r.params, leaf)
		})
	case OpReLoop:
		return rw.mapLeaves(memo[r.args[0]], func(leaf *Expr) *Expr {
			args := append([]*Expr{leaf}, r.args[1:]...)
			return rw.mkLeaf(r.op, r.params, args...)
		})
	default:
		return r
	}
}

// liftITEsThrottled lifts a shallow if-then-else argument of a sequence or
// regex operator over the operator.
//
//	f(x, ite(c, t, e)) => ite(c, f(x, t), f(x, e))
func (rw *Rewriter) liftITEsThrottled(e *Expr) (Status, *Expr) {
	if !e.op.IsSeq() && !e.op.IsRe() {
		return StatusFailed, nil
	}
	for i, arg := range e.args {
		if arg.op != OpIte || exprDepth(arg) > 2 {
			continue
		}
		th := append([]*Expr(nil), e.args...)
		el := append([]*Expr(nil), e.args...)
		th[i], el[i] = arg.args[1], arg.args[2]
		a := rw.arena
		return StatusRewrite2, a.Ite(arg.args[0], a.Rebuild(e, th), a.Rebuild(e, el))
	}
	return StatusFailed, nil
}

// exprDepth returns the height of the term e. Leaves have depth 0.
func exprDepth(e *Expr) int {
	depth := make(map[*Expr]int)
	stack := []*Expr{e}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		if _, ok := depth[x]; ok {
			stack = stack[:len(stack)-1]
			continue
		}

		d, pending := 0, false
		for _, arg := range x.args {
			if n, ok := depth[arg]; ok {
				d = max(d, n+1)
			} else {
				stack = append(stack, arg)
				pending = true
			}
		}
		if !pending {
			depth[x] = d
			stack = stack[:len(stack)-1]
		}
	}
	return depth[e]
}

// rewriteReITE normalizes an if-then-else over regexes.
//
//	ite(not c, r1, r2)        => ite(c, r2, r1)
//	ite(c, ite(c, r1, _), r2) => ite(c, r1, r2)
//	ite(c, r1, ite(c, _, r2)) => ite(c, r1, r2)
//
// Nested conditions of a larger id are moved outside.
func (rw *Rewriter) rewriteReITE(cond, r1, r2 *Expr) (Status, *Expr) {
	a := rw.arena
	if cond.op == OpNot {
		return StatusRewrite1, a.Ite(cond.args[0], r2, r1)
	}
	if topCond(r1) == cond || topCond(r2) == cond {
		return StatusRewrite1, a.Ite(cond, restrict(r1, cond, true), restrict(r2, cond, false))
	}

	if c1, c2 := topCond(r1), topCond(r2); (c1 != nil && c1.id > cond.id) || (c2 != nil && c2.id > cond.id) {
		return StatusRewrite1, rw.combine(OpIte, r1, r2, cond)
	}
	return StatusFailed, nil
}
