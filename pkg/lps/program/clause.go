package program

import (
	"github.com/cognicore/lps/pkg/lps/term"
)

// Clause is a Horn clause: Head <- Body. A fact has an empty body.
type Clause struct {
	Head term.Compound
	Body []term.Term
}

// Key returns the head's name/arity.
func (c Clause) Key() string { return c.Head.Key() }

// Rename returns the clause with every variable prefixed by tag.
func (c Clause) Rename(tag string) Clause {
	th := renaming(tag, append([]term.Term{c.Head}, c.Body...))
	return Clause{
		Head: c.Head.Substitute(th).(term.Compound),
		Body: term.SubstituteAll(c.Body, th),
	}
}

func (c Clause) String() string {
	if len(c.Body) == 0 {
		return c.Head.String() + "."
	}
	return c.Head.String() + " <- " + term.JoinString(c.Body) + "."
}

// Rule is a reactive rule: when the antecedent holds, the consequent has
// to be made true.
type Rule struct {
	Antecedent []term.Term
	Consequent []term.Term
}

// Rename returns the rule with every variable prefixed by tag.
func (r Rule) Rename(tag string) Rule {
	all := append(append([]term.Term(nil), r.Antecedent...), r.Consequent...)
	th := renaming(tag, all)
	return Rule{
		Antecedent: term.SubstituteAll(r.Antecedent, th),
		Consequent: term.SubstituteAll(r.Consequent, th),
	}
}

func (r Rule) String() string {
	return term.JoinString(r.Antecedent) + " -> " + term.JoinString(r.Consequent) + "."
}

// Constraint is a denial: its body must never hold.
type Constraint struct {
	Body []term.Term
}

func (c Constraint) String() string { return "<- " + term.JoinString(c.Body) + "." }

// RenameTerms prefixes every variable in ts by tag.
func RenameTerms(tag string, ts []term.Term) []term.Term {
	return term.SubstituteAll(ts, renaming(tag, ts))
}

func renaming(tag string, ts []term.Term) term.Theta {
	var th term.Theta
	for _, v := range term.VariablesOf(ts) {
		th = th.Bind(v, term.V(tag+v))
	}
	return th
}
