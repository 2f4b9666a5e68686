package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cognicore/lps/pkg/lps/goaltree"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// partial is a rule antecedent matched up to a literal that refers to a
// time that has not come yet.
type partial struct {
	rule      int
	remaining []term.Term
	theta     term.Theta
}

// derive matches rule antecedents against kb, whose state describes time
// now. Partial matches carried from earlier cycles are resumed first, then
// every rule is matched afresh. Complete matches become goal trees for the
// rule's consequent.
func (e *Engine) derive(ctx context.Context, kb *program.Program, now int64, carried []partial) ([]*goaltree.Tree, []partial, error) {
	rules := kb.Rules()
	work := append([]partial(nil), carried...)
	for i, r := range rules {
		work = append(work, partial{rule: i, remaining: r.Antecedent})
	}

	var trees []*goaltree.Tree
	var next []partial
	seen := make(map[string]struct{})
	for _, p := range work {
		done, waiting, err := e.match(ctx, kb, now, p)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %d: %w", p.rule, err)
		}
		next = append(next, waiting...)
		for _, th := range done {
			r := rules[p.rule]
			th = th.Restrict(term.VariablesOf(append(append([]term.Term(nil), r.Antecedent...), r.Consequent...)))
			key := strconv.Itoa(p.rule) + th.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			trees = append(trees, goaltree.New(e.ids.Next(), p.rule, now, r.Consequent, th))
		}
	}
	if len(trees) > 0 {
		e.logger.Debug("rules fired", slog.Int64("time", now), slog.Int("goals", len(trees)))
	}
	return trees, next, nil
}

func (e *Engine) match(ctx context.Context, kb *program.Program, now int64, p partial) (done []term.Theta, waiting []partial, err error) {
	type item struct {
		i     int
		theta term.Theta
	}
	queue := []item{{theta: p.theta}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.i == len(p.remaining) {
			done = append(done, it.theta)
			continue
		}
		lit := p.remaining[it.i].Substitute(it.theta)
		if future(kb, lit, now) {
			waiting = append(waiting, partial{rule: p.rule, remaining: p.remaining[it.i:], theta: it.theta})
			continue
		}
		res, err := e.res.Explain(ctx, []term.Term{lit}, kb, it.theta)
		if errors.Is(err, internalerr.ErrNotGround) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		for _, th := range res {
			queue = append(queue, item{i: it.i + 1, theta: th})
		}
	}
	return done, waiting, nil
}

// future reports whether lit is a timed literal about a time after now.
// Actions and events are known once their window has ended, so one
// starting at now is still in the future.
func future(kb *program.Program, lit term.Term, now int64) bool {
	c, ok := lit.(term.Compound)
	if !ok {
		return false
	}
	switch kb.KindOf(c.Key()) {
	case program.KindFluent:
		t, ok := program.TimeArg(c, program.FluentTimeArgs)
		if !ok {
			return false
		}
		v, bound := program.IntArg(t)
		return bound && v > now
	case program.KindAction, program.KindEvent:
		t, ok := program.TimeArg(c, program.ActionTimeArgs)
		if !ok {
			return false
		}
		v, bound := program.IntArg(t)
		return bound && v >= now
	}
	return false
}
