package sat

import (
	"fmt"
	"slices"
	"time"

	"github.com/benbjohnson/seqre"
	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxRounds is the default number of models checked per query.
const DefaultMaxRounds = 1000

// maxWitnesses is the number of characters tried per model when the
// formula has atoms the solver cannot interpret.
const maxWitnesses = 64

// Ensure solver implements interface.
var _ seqre.Solver = (*Solver)(nil)

// Solver decides the satisfiability of boolean expressions over character
// variables. Character comparisons against constants are abstracted to
// propositional atoms and solved with gini. Each propositional model is
// checked against the interval domain of each character variable and
// blocked if inconsistent.
type Solver struct {
	arena *seqre.Arena
	stats Stats

	// Maximum number of models checked before giving up.
	MaxRounds int
}

// NewSolver returns a new instance of Solver over the arena.
func NewSolver(a *seqre.Arena) *Solver {
	return &Solver{arena: a, MaxRounds: DefaultMaxRounds}
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// CheckSat returns TruthTrue if some assignment of the free variables of
// fml satisfies it, and TruthFalse if none does.
func (s *Solver) CheckSat(fml *seqre.Expr) (_ seqre.Truth, err error) {
	t := time.Now()
	defer func() {
		s.stats.CheckN++
		s.stats.CheckTime += time.Since(t)
	}()

	if fml.Sort() != seqre.SortBool {
		return seqre.TruthUnknown, fmt.Errorf("check sat: non-boolean formula: %s", fml.Sort())
	} else if fml.IsTrue() {
		return seqre.TruthTrue, nil
	} else if fml.IsFalse() {
		return seqre.TruthFalse, nil
	}

	q := newQuery(s.arena, fml)
	g := gini.New()
	q.c.ToCnf(g)

	incomplete := false
	for round := 0; round < s.MaxRounds; round++ {
		s.stats.Rounds++
		g.Assume(q.root)
		switch g.Solve() {
		case 1:
		case -1:
			if incomplete {
				return seqre.TruthUnknown, nil
			}
			return seqre.TruthFalse, nil
		default:
			return seqre.TruthUnknown, seqre.ErrSolverUnknown
		}

		model := q.model(g)
		env, conflict := q.check(model)
		if conflict != nil {
			block(g, conflict, model)
			continue
		}
		if len(q.opaque) == 0 {
			return seqre.TruthTrue, nil
		}

		// Opaque atoms are decided by evaluating the formula at witnesses.
		if ok, err := q.evaluate(env); err != nil {
			log.WithError(err).WithField("fml", fml).Debug("check sat: witness not evaluated")
		} else if ok {
			return seqre.TruthTrue, nil
		}
		incomplete = true
		block(g, q.atoms, model)
	}
	return seqre.TruthUnknown, seqre.ErrSolverUnknown
}

// block adds the clause excluding the assignment of atoms in model.
func block(g *gini.Gini, atoms []*atom, model map[*atom]bool) {
	for _, at := range atoms {
		if model[at] {
			g.Add(at.lit.Not())
		} else {
			g.Add(at.lit)
		}
	}
	g.Add(z.LitNull)
}

// atomKind is the theory interpretation of an atom.
type atomKind int

const (
	atomOpaque atomKind = iota // uninterpreted
	atomEq                     // x = c
	atomLe                     // x <= c
	atomGe                     // c <= x
	atomProp                   // propositional variable
)

type atom struct {
	expr *seqre.Expr
	lit  z.Lit
	kind atomKind
	v    *seqre.Expr // character variable
	c    rune
}

// query is the propositional abstraction of one formula.
type query struct {
	arena  *seqre.Arena
	fml    *seqre.Expr
	c      *logic.C
	root   z.Lit
	atoms  []*atom
	lits   map[*seqre.Expr]z.Lit
	opaque []*atom
	vars   []*seqre.Expr // character variables
}

func newQuery(a *seqre.Arena, fml *seqre.Expr) *query {
	q := &query{
		arena:  a,
		fml:    fml,
		c:      logic.NewC(),
		lits:   make(map[*seqre.Expr]z.Lit),
	}
	for _, v := range seqre.FindVars(fml) {
		if v.Sort() == seqre.SortChar {
			q.vars = append(q.vars, v)
		}
	}
	q.root = q.encode(fml)
	return q
}

// encode returns the circuit literal of the boolean expression e.
func (q *query) encode(e *seqre.Expr) z.Lit {
	if m, ok := q.lits[e]; ok {
		return m
	}

	var m z.Lit
	switch e.Op() {
	case seqre.OpTrue:
		m = q.c.T
	case seqre.OpFalse:
		m = q.c.F
	case seqre.OpNot:
		m = q.encode(e.Arg(0)).Not()
	case seqre.OpAnd, seqre.OpOr:
		ms := make([]z.Lit, e.NumArgs())
		for i, arg := range e.Args() {
			ms[i] = q.encode(arg)
		}
		if e.Op() == seqre.OpAnd {
			m = q.c.Ands(ms...)
		} else {
			m = q.c.Ors(ms...)
		}
	case seqre.OpIte:
		m = q.c.Choice(q.encode(e.Arg(0)), q.encode(e.Arg(1)), q.encode(e.Arg(2)))
	case seqre.OpEq:
		if e.Arg(0).Sort() == seqre.SortBool {
			m = q.c.Xor(q.encode(e.Arg(0)), q.encode(e.Arg(1))).Not()
			break
		}
		m = q.newAtom(e).lit
	default:
		m = q.newAtom(e).lit
	}
	q.lits[e] = m
	return m
}

func (q *query) newAtom(e *seqre.Expr) *atom {
	at := &atom{expr: e, lit: q.c.Lit()}
	lhs, rhs := (*seqre.Expr)(nil), (*seqre.Expr)(nil)
	if e.NumArgs() == 2 {
		lhs, rhs = e.Arg(0), e.Arg(1)
	}

	switch {
	case e.Op() == seqre.OpVar:
		at.kind = atomProp
	case e.Op() == seqre.OpEq && isCharVar(lhs) && isConstChar(rhs):
		at.kind, at.v, at.c = atomEq, lhs, charValue(rhs)
	case e.Op() == seqre.OpEq && isConstChar(lhs) && isCharVar(rhs):
		at.kind, at.v, at.c = atomEq, rhs, charValue(lhs)
	case e.Op() == seqre.OpCharLe && isCharVar(lhs) && isConstChar(rhs):
		at.kind, at.v, at.c = atomLe, lhs, charValue(rhs)
	case e.Op() == seqre.OpCharLe && isConstChar(lhs) && isCharVar(rhs):
		at.kind, at.v, at.c = atomGe, rhs, charValue(lhs)
	default:
		q.opaque = append(q.opaque, at)
	}
	q.atoms = append(q.atoms, at)
	return at
}

func isCharVar(e *seqre.Expr) bool {
	return e != nil && e.Op() == seqre.OpVar && e.Sort() == seqre.SortChar
}

func isConstChar(e *seqre.Expr) bool {
	if e == nil {
		return false
	}
	_, ok := e.CharValue()
	return ok
}

func charValue(e *seqre.Expr) rune {
	c, _ := e.CharValue()
	return c
}

// model returns the values of the atoms in the current model of g.
func (q *query) model(g *gini.Gini) map[*atom]bool {
	m := make(map[*atom]bool, len(q.atoms))
	for _, at := range q.atoms {
		m[at] = g.Value(at.lit)
	}
	return m
}

// check intersects the character domains implied by model. It returns the
// atoms of the first variable whose domain is empty, or the domain of
// each variable.
func (q *query) check(model map[*atom]bool) (map[*seqre.Expr]domain, []*atom) {
	env := make(map[*seqre.Expr]domain, len(q.vars))
	for _, v := range q.vars {
		env[v] = fullDomain()
	}

	for _, v := range q.vars {
		var used []*atom
		for _, at := range q.atoms {
			if at.v != v {
				continue
			}
			used = append(used, at)

			d, value := env[v], model[at]
			switch {
			case at.kind == atomEq && value:
				d = d.intersect(at.c, at.c)
			case at.kind == atomEq:
				d = d.exclude(at.c)
			case at.kind == atomLe && value:
				d = d.intersect(0, at.c)
			case at.kind == atomLe:
				d = d.intersect(at.c+1, seqre.MaxChar)
			case at.kind == atomGe && value:
				d = d.intersect(at.c, seqre.MaxChar)
			default:
				d = d.intersect(0, at.c-1)
			}
			env[v] = d
			if d.isEmpty() {
				return nil, used
			}
		}
	}
	return env, nil
}

// evaluate evaluates the formula at witnesses picked from the domain of
// each character variable.
func (q *query) evaluate(domains map[*seqre.Expr]domain) (bool, error) {
	// Candidates are the bounds of each interval of each domain.
	candidates := make(map[*seqre.Expr][]rune, len(q.vars))
	for _, v := range q.vars {
		var cs []rune
		for _, iv := range domains[v] {
			cs = append(cs, iv.lo, iv.hi)
		}
		cs = slices.Compact(cs)
		candidates[v] = cs[:min(len(cs), maxWitnesses)]
	}

	var lastErr error
	for i := 0; i < maxWitnesses; i++ {
		env := make(map[string]*seqre.Expr, len(q.vars))
		found := false
		for _, v := range q.vars {
			cs := candidates[v]
			if i < len(cs) {
				found = true
				env[v.Name()] = q.arena.Char(cs[i])
			} else {
				env[v.Name()] = q.arena.Char(cs[len(cs)-1])
			}
		}
		if !found && i > 0 {
			break
		}

		v, err := seqre.NewExprEvaluator(q.arena, env).Evaluate(q.fml)
		if err != nil {
			lastErr = err
			continue
		} else if v.IsTrue() {
			return true, nil
		}
	}
	return false, lastErr
}

// Stats represents statistics for the solver.
type Stats struct {
	CheckN    int
	CheckTime time.Duration
	Rounds    int
}
