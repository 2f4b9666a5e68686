package program

import "github.com/cognicore/lps/pkg/lps/term"

// Effect clause heads. Their first argument is the triggering event.
const (
	Initiates  = "initiates"
	Terminates = "terminates"
	Updates    = "updates"
)

// IsEffectKey reports whether key names an effect clause head.
func IsEffectKey(key string) bool {
	switch key {
	case Initiates + "/2", Terminates + "/2", Updates + "/3":
		return true
	}
	return false
}

// LiteralKey returns name/arity for compound literals.
func LiteralKey(t term.Term) (string, bool) {
	c, ok := t.(term.Compound)
	if !ok {
		return "", false
	}
	return c.Key(), true
}

// AnalyseMacros computes the composite events: declared events that are
// defined by clauses, plus every clause-defined predicate whose bodies
// reach an action, an event or another composite event. Declared fluents
// and actions are never composite.
func (p *Program) AnalyseMacros() {
	p.own()
	macros := make(map[string]struct{})
	for key := range p.clauseIndex {
		if p.kinds[key] == KindEvent {
			macros[key] = struct{}{}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, c := range p.clauses {
			key := c.Key()
			if _, ok := macros[key]; ok || IsEffectKey(key) {
				continue
			}
			if k := p.kinds[key]; k == KindFluent || k == KindAction {
				continue
			}
			for _, b := range c.Body {
				bk, ok := LiteralKey(b)
				if !ok {
					continue
				}
				_, isMacro := macros[bk]
				k := p.kinds[bk]
				if isMacro || k == KindAction || k == KindEvent {
					macros[key] = struct{}{}
					changed = true
					break
				}
			}
		}
	}
	p.macros = macros
}

// IsMacro reports whether key is a composite event.
func (p *Program) IsMacro(key string) bool {
	_, ok := p.macros[key]
	return ok
}
