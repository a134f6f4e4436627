// Package learning derives conflict clauses from the answer of a
// mutation-aware evaluation. A scenario is fully determined by its set of
// positive modifiers, so any other grounding whose selector currently picks
// exactly the same modifiers must produce the same answer. The clauses emitted
// here tell the solver so.
package learning

import (
	"hexowl/internal/logging"
	"hexowl/internal/metrics"
	"hexowl/internal/scenario"
	"hexowl/internal/solver"
)

// Sources label clauses in logs and metrics.
const (
	SourceAlternative = "alternative"
	SourceCurrent     = "current"
)

// Call identifies the evaluated grounding of a mutation-aware atom. Inputs
// are laid out as (location, delta, selector, extra...).
type Call struct {
	Predicate   string
	Inputs      []solver.Symbol
	OutputArity int
}

// Location, Delta, Selector and Extra split Inputs.
func (c Call) Location() solver.Symbol { return c.Inputs[0] }
func (c Call) Delta() string           { return c.Inputs[1].Unquoted() }
func (c Call) Selector() solver.Symbol { return c.Inputs[2] }
func (c Call) Extra() []solver.Symbol  { return c.Inputs[3:] }

// Generator emits clauses for alternative groundings.
type Generator struct {
	// IncludeCurrent also learns the clause for the evaluated grounding
	// itself, so an identical later call can be decided without the reasoner.
	IncludeCurrent bool
}

// Learn builds and submits the clauses for call given its scenario and
// answer. The submitted clauses are returned.
func (g Generator) Learn(ctx solver.Context, call Call, sc *scenario.Scenario, answer [][]solver.Symbol) []solver.Nogood {
	if len(call.Inputs) < 3 {
		return nil
	}
	var learned []solver.Nogood
	for _, inst := range ctx.Instances(call.Predicate) {
		source, ok := g.matches(call, inst)
		if !ok {
			continue
		}
		selector := inst.Inputs[2]
		positive, other, ok := partition(ctx, sc, selector)
		if !ok {
			logging.LearningDebug("%s: selector %s does not realize the scenario", call.Predicate, selector)
			continue
		}
		for _, out := range outputLiterals(ctx, call, inst.Inputs, answer) {
			ng := make(solver.Nogood, 0, len(positive)+len(other)+1)
			for _, a := range positive {
				ng = append(ng, solver.Pos(a))
			}
			for _, a := range other {
				ng = append(ng, solver.Neg(a))
			}
			ng = append(ng, out).Normalize()
			logging.LearningDebug("learned %s nogood %s", source, ng)
			ctx.Learn(ng)
			metrics.NogoodLearned(source)
			logging.Audit().NogoodLearned(source, len(ng), ng.String())
			learned = append(learned, ng)
		}
	}
	return learned
}

// matches reports whether inst queries the same store and arguments as call
// through the same delta predicate.
func (g Generator) matches(call Call, inst solver.Instance) (string, bool) {
	if len(inst.Inputs) != len(call.Inputs) {
		return "", false
	}
	if !inst.Inputs[0].Equal(call.Location()) || inst.Inputs[1].Unquoted() != call.Delta() {
		return "", false
	}
	if !solver.SameSymbols(inst.Inputs[3:], call.Extra()) {
		return "", false
	}
	if inst.Inputs[2].Equal(call.Selector()) {
		return SourceCurrent, g.IncludeCurrent
	}
	return SourceAlternative, true
}

// partition splits the delta atoms of selector into those asserting one of
// the scenario's positive modifiers and the rest. It fails unless the
// positive part has exactly the scenario's size.
func partition(a solver.Assignment, sc *scenario.Scenario, selector solver.Symbol) (positive, other []solver.Atom, ok bool) {
	for _, aa := range scenario.Relevant(a, sc.Delta, selector) {
		if aa.Truth == solver.True && sc.Positive[scenario.Modifier(aa.Atom).Value()] {
			positive = append(positive, aa.Atom)
		} else {
			other = append(other, aa.Atom)
		}
	}
	return positive, other, len(positive) == len(sc.Positive)
}

// outputLiterals returns one literal per output tuple: tuples in the answer
// contribute the negated output atom, tuples the solver knows but the answer
// lacks contribute the output atom itself. The empty tuple of a zero-output
// atom is always known.
func outputLiterals(ctx solver.Context, call Call, inputs []solver.Symbol, answer [][]solver.Symbol) []solver.Literal {
	predicate := call.Predicate
	inAnswer := make(map[string]bool, len(answer))
	var out []solver.Literal
	for _, tuple := range answer {
		k := solver.TupleKey(tuple)
		if inAnswer[k] {
			continue
		}
		inAnswer[k] = true
		out = append(out, solver.Neg(ctx.OutputAtom(predicate, inputs, tuple)))
	}
	known := ctx.OutputTuples(predicate, inputs)
	if call.OutputArity == 0 {
		known = append(known, nil)
	}
	for _, tuple := range known {
		k := solver.TupleKey(tuple)
		if inAnswer[k] {
			continue
		}
		inAnswer[k] = true
		out = append(out, solver.Pos(ctx.OutputAtom(predicate, inputs, tuple)))
	}
	return out
}
