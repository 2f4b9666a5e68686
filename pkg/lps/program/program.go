// Package program holds the knowledge base of an LPS program: facts,
// clauses, rules, constraints, declared fluent/action/event templates, the
// current fluent state, the actions and observations of the last cycle, and
// the functor registry.
//
// Indexed stores are persistent, and the remaining collections are copied
// on first write after Clone, so speculative search can clone a Program
// for every candidate without copying it.
package program

import (
	"maps"
	"slices"
	"strconv"

	"github.com/cognicore/lps/pkg/lps/index"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Kind classifies a predicate.
type Kind uint8

const (
	KindOther Kind = iota
	KindFluent
	KindAction
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindFluent:
		return "fluent"
	case KindAction:
		return "action"
	case KindEvent:
		return "event"
	}
	return "other"
}

// Program is the knowledge base.
type Program struct {
	facts    *index.Index
	state    *index.Index
	executed *index.Index
	observed *index.Index
	legal    *index.Index

	clauses     []Clause
	clauseIndex map[string][]int
	constraints []Constraint
	rules       []Rule

	templates map[string]term.Compound
	kinds     map[string]Kind
	order     []string
	known     map[string]struct{}
	macros    map[string]struct{}
	functors  *Functors

	factSeq int
	shared  bool
}

// New returns an empty knowledge base.
func New() *Program {
	return &Program{
		facts:       index.New(),
		state:       index.New(),
		executed:    index.New(),
		observed:    index.New(),
		legal:       index.New(),
		clauseIndex: make(map[string][]int),
		templates:   make(map[string]term.Compound),
		kinds:       make(map[string]Kind),
		known:       make(map[string]struct{}),
		macros:      make(map[string]struct{}),
		functors:    NewFunctors(),
	}
}

// Clone returns an isolated snapshot. Updates to either copy are never
// visible in the other.
func (p *Program) Clone() *Program {
	cp := *p
	cp.facts = p.facts.Clone()
	cp.state = p.state.Clone()
	cp.executed = p.executed.Clone()
	cp.observed = p.observed.Clone()
	cp.legal = p.legal.Clone()
	cp.shared = true
	p.shared = true
	return &cp
}

// own copies the shared collections before the first write.
func (p *Program) own() {
	if !p.shared {
		return
	}
	p.clauses = slices.Clone(p.clauses)
	old := p.clauseIndex
	p.clauseIndex = make(map[string][]int, len(old))
	for k, v := range old {
		p.clauseIndex[k] = slices.Clone(v)
	}
	p.constraints = slices.Clone(p.constraints)
	p.rules = slices.Clone(p.rules)
	p.templates = maps.Clone(p.templates)
	p.kinds = maps.Clone(p.kinds)
	p.order = slices.Clone(p.order)
	p.known = maps.Clone(p.known)
	p.macros = maps.Clone(p.macros)
	p.functors = p.functors.clone()
	p.shared = false
}

func (p *Program) markKnown(key string) {
	if _, ok := p.known[key]; ok {
		return
	}
	p.own()
	p.known[key] = struct{}{}
}

// KnownPredicate reports whether key was declared, stored or defined by a
// clause.
func (p *Program) KnownPredicate(key string) bool {
	_, ok := p.known[key]
	return ok
}

// AddFact stores a static fact. Variables in the fact are renamed apart so
// they never capture variables of a query.
func (p *Program) AddFact(f term.Compound) {
	if !f.IsGround() {
		p.factSeq++
		f = Clause{Head: f}.Rename("_F" + strconv.Itoa(p.factSeq) + "_").Head
	}
	p.markKnown(f.Key())
	p.facts.Add(f)
}

// RemoveFact deletes a static fact.
func (p *Program) RemoveFact(f term.Compound) bool { return p.facts.Remove(f) }

// Facts returns the static facts in index order.
func (p *Program) Facts() []term.Compound { return p.facts.Literals() }

// FactUnifies matches q against the static facts only.
func (p *Program) FactUnifies(q term.Compound, theta term.Theta) []index.Match {
	return p.facts.Unifies(q, theta)
}

// AddClause stores a clause. Clauses keep their declaration order.
func (p *Program) AddClause(c Clause) {
	if len(c.Body) == 0 {
		p.AddFact(c.Head)
		return
	}
	p.own()
	key := c.Key()
	p.clauseIndex[key] = append(p.clauseIndex[key], len(p.clauses))
	p.clauses = append(p.clauses, c)
	p.known[key] = struct{}{}
}

// Clauses returns every clause in declaration order.
func (p *Program) Clauses() []Clause { return p.clauses }

// ClausesFor returns the clauses whose head has the given name/arity.
func (p *Program) ClausesFor(key string) []Clause {
	idx := p.clauseIndex[key]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Clause, len(idx))
	for i, j := range idx {
		out[i] = p.clauses[j]
	}
	return out
}

// HasClauses reports whether any clause defines key.
func (p *Program) HasClauses(key string) bool { return len(p.clauseIndex[key]) > 0 }

// AddConstraint stores an integrity constraint.
func (p *Program) AddConstraint(c Constraint) {
	p.own()
	p.constraints = append(p.constraints, c)
}

// Constraints returns the integrity constraints.
func (p *Program) Constraints() []Constraint { return p.constraints }

// AddRule stores a reactive rule.
func (p *Program) AddRule(r Rule) {
	p.own()
	p.rules = append(p.rules, r)
}

// Rules returns the reactive rules in declaration order.
func (p *Program) Rules() []Rule { return p.rules }

// Declare registers a fluent, action or event template. It reports false
// when the name/arity is already declared.
func (p *Program) Declare(kind Kind, tpl term.Compound) bool {
	key := tpl.Key()
	if _, ok := p.kinds[key]; ok {
		return false
	}
	p.own()
	p.kinds[key] = kind
	p.templates[key] = tpl
	p.order = append(p.order, key)
	p.known[key] = struct{}{}
	return true
}

// KindOf returns the declared kind of a name/arity.
func (p *Program) KindOf(key string) Kind { return p.kinds[key] }

// Template returns the declared template of a name/arity.
func (p *Program) Template(key string) (term.Compound, bool) {
	t, ok := p.templates[key]
	return t, ok
}

// Templates returns the templates of one kind in declaration order.
func (p *Program) Templates(kind Kind) []term.Compound {
	var out []term.Compound
	for _, key := range p.order {
		if p.kinds[key] == kind {
			out = append(out, p.templates[key])
		}
	}
	return out
}

// DeclaredName reports whether any declared predicate uses name, whatever
// its arity, and returns its kind.
func (p *Program) DeclaredName(name string) (Kind, bool) {
	for _, key := range p.order {
		if p.templates[key].Name == name {
			return p.kinds[key], true
		}
	}
	return KindOther, false
}

// AddState adds a time-stamped fluent to the current state.
func (p *Program) AddState(f term.Compound) bool {
	p.markKnown(f.Key())
	return p.state.Add(f)
}

// RemoveState deletes a fluent from the current state.
func (p *Program) RemoveState(f term.Compound) bool { return p.state.Remove(f) }

// State returns the current fluent state.
func (p *Program) State() []term.Compound { return p.state.Literals() }

// StateUnifies matches q against the fluent state only.
func (p *Program) StateUnifies(q term.Compound, theta term.Theta) []index.Match {
	return p.state.Unifies(q, theta)
}

// Restamp moves every fluent of the state to time t.
func (p *Program) Restamp(t int64) {
	next := index.New()
	for _, f := range p.state.Literals() {
		next.Add(Restamp(f, t))
	}
	p.state = next
}

// SetExecuted replaces the actions executed in the last cycle.
func (p *Program) SetExecuted(actions []term.Compound) {
	p.executed = index.New()
	for _, a := range actions {
		p.markKnown(a.Key())
		p.executed.Add(a)
	}
}

// Executed returns the actions executed in the last cycle.
func (p *Program) Executed() []term.Compound { return p.executed.Literals() }

// ExecutedUnifies matches q against the executed actions only.
func (p *Program) ExecutedUnifies(q term.Compound, theta term.Theta) []index.Match {
	return p.executed.Unifies(q, theta)
}

// SetObserved replaces the observations of the last cycle.
func (p *Program) SetObserved(obs []term.Compound) {
	p.observed = index.New()
	for _, o := range obs {
		p.markKnown(o.Key())
		p.observed.Add(o)
	}
}

// Observed returns the observations of the last cycle.
func (p *Program) Observed() []term.Compound { return p.observed.Literals() }

// ObservedUnifies matches q against the observations only.
func (p *Program) ObservedUnifies(q term.Compound, theta term.Theta) []index.Match {
	return p.observed.Unifies(q, theta)
}

// SetLegal replaces the actions that may be selected in this cycle.
func (p *Program) SetLegal(actions []term.Compound) {
	p.legal = index.New()
	for _, a := range actions {
		p.legal.Add(a)
	}
}

// LegalUnifies matches q against the legal actions.
func (p *Program) LegalUnifies(q term.Compound, theta term.Theta) []index.Match {
	return p.legal.Unifies(q, theta)
}

// Unifies matches q against facts, state, executed actions and
// observations, in that order.
func (p *Program) Unifies(q term.Compound, theta term.Theta) []index.Match {
	var out []index.Match
	for _, ix := range []*index.Index{p.facts, p.state, p.executed, p.observed} {
		out = append(out, ix.Unifies(q, theta)...)
	}
	return out
}

// Define registers a functor.
func (p *Program) Define(f Functor) {
	p.own()
	p.functors.Register(f)
	p.known[f.Key()] = struct{}{}
}

// Functor looks up a registered functor by name/arity.
func (p *Program) Functor(key string) (Functor, bool) { return p.functors.Lookup(key) }
