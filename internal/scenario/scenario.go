// Package scenario turns the solver's assignment of a delta predicate into
// the edit list for one selector, together with the bookkeeping that clause
// learning needs to recognize the same scenario under another selector.
package scenario

import (
	"sort"

	"hexowl/internal/logging"
	"hexowl/internal/modification"
	"hexowl/internal/solver"
)

// Scenario is one selector's resolved modifications.
type Scenario struct {
	Delta    string
	Selector solver.Symbol

	// Edits in assignment order.
	Edits []modification.Edit
	// Positive holds the canonical text of every decoded true modifier.
	Positive map[string]bool
	// Seed records why the scenario looks the way it does: true delta atoms
	// as positive literals, false ones negated.
	Seed []solver.Literal
	// Undecided lists relevant atoms the solver has not assigned yet.
	Undecided []solver.Atom
}

// Relevant returns the delta atoms whose selector equals selector, sorted by
// key. Atoms that are not (selector, modifier) pairs are skipped.
func Relevant(assign solver.Assignment, delta string, selector solver.Symbol) []solver.AssignedAtom {
	var out []solver.AssignedAtom
	for _, aa := range assign.Atoms(delta) {
		if len(aa.Atom.Args) != 2 {
			logging.Get(logging.CategoryScenario).Warn("ignoring %s: delta atoms take (selector, modifier)", aa.Atom)
			continue
		}
		if !aa.Atom.Args[0].Equal(selector) {
			continue
		}
		out = append(out, aa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Atom.Key() < out[j].Atom.Key() })
	return out
}

// Modifier returns the modifier argument of a delta atom.
func Modifier(a solver.Atom) solver.Symbol { return a.Args[1] }

// Extract builds the scenario for selector. Modifiers of unknown kind are
// logged and contribute nothing.
func Extract(assign solver.Assignment, delta string, selector solver.Symbol, ns modification.Expander) *Scenario {
	sc := &Scenario{
		Delta:    delta,
		Selector: selector,
		Positive: make(map[string]bool),
	}
	for _, aa := range Relevant(assign, delta, selector) {
		switch aa.Truth {
		case solver.True:
			mod := Modifier(aa.Atom)
			edit, err := modification.Decode(mod, ns)
			if err != nil {
				logging.Get(logging.CategoryScenario).Warn("skipping modifier %s: %v", mod, err)
				continue
			}
			sc.Edits = append(sc.Edits, edit)
			sc.Positive[mod.Value()] = true
			sc.Seed = append(sc.Seed, solver.Pos(aa.Atom))
		case solver.False:
			sc.Seed = append(sc.Seed, solver.Neg(aa.Atom))
		default:
			sc.Undecided = append(sc.Undecided, aa.Atom)
		}
	}
	logging.ScenarioDebug("scenario %s/%s: %d edits, %d seed literals, %d undecided",
		delta, selector, len(sc.Edits), len(sc.Seed), len(sc.Undecided))
	return sc
}

// PositiveModifiers returns the positive set in sorted order.
func (s *Scenario) PositiveModifiers() []string {
	out := make([]string, 0, len(s.Positive))
	for m := range s.Positive {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Decided reports whether every relevant delta atom has a value.
func (s *Scenario) Decided() bool { return len(s.Undecided) == 0 }
