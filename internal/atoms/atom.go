// Package atoms implements the external atoms the solver calls to query the
// ontology stores: read-only queries against a store's current state, and
// mutation-aware queries that evaluate a hypothetical scenario and learn
// conflict clauses from the answer.
package atoms

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"hexowl/internal/logging"
	"hexowl/internal/metrics"
	"hexowl/internal/solver"
)

var (
	// ErrUnknownAtom is returned for predicates missing from the catalogue.
	ErrUnknownAtom = errors.New("unknown external atom")
	// ErrArity is returned when a call passes the wrong number of inputs.
	ErrArity = errors.New("wrong number of external atom inputs")
)

// InputType says how the solver passes an input.
type InputType int

const (
	// ConstantInput is a single ground term.
	ConstantInput InputType = iota
	// PredicateInput names a predicate whose assignment the atom reads.
	PredicateInput
)

func (t InputType) String() string {
	if t == PredicateInput {
		return "predicate"
	}
	return "constant"
}

// Answer is the certain output of one evaluation.
type Answer struct {
	Tuples [][]solver.Symbol
	// Learned holds the clauses submitted to the solver during evaluation.
	Learned []solver.Nogood
	// Inconsistent is set when the queried store had no model.
	Inconsistent bool

	seen map[string]bool
}

// Add appends tuple unless it is already present.
func (a *Answer) Add(tuple ...solver.Symbol) {
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	k := solver.TupleKey(tuple)
	if a.seen[k] {
		return
	}
	a.seen[k] = true
	a.Tuples = append(a.Tuples, append([]solver.Symbol(nil), tuple...))
}

// True reports whether a zero-output atom holds.
func (a *Answer) True() bool { return len(a.Tuples) > 0 }

// Atom is one external atom. Inputs include the leading store location.
type Atom interface {
	Predicate() string
	Inputs() []InputType
	OutputArity() int
	Evaluate(ctx solver.Context, inputs []solver.Symbol) (*Answer, error)
}

// Catalogue is the set of atoms a host can call.
type Catalogue struct {
	atoms map[string]Atom
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{atoms: make(map[string]Atom)}
}

// Register adds or replaces an atom.
func (c *Catalogue) Register(a Atom) {
	c.atoms[a.Predicate()] = a
	logging.AtomsDebug("registered &%s/%d->%d", a.Predicate(), len(a.Inputs()), a.OutputArity())
}

// Lookup returns the atom for predicate.
func (c *Catalogue) Lookup(predicate string) (Atom, bool) {
	a, ok := c.atoms[predicate]
	return a, ok
}

// Names lists registered predicates in sorted order.
func (c *Catalogue) Names() []string {
	out := make([]string, 0, len(c.atoms))
	for name := range c.atoms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Evaluate checks the call shape, runs the atom and records the outcome.
func (c *Catalogue) Evaluate(ctx solver.Context, predicate string, inputs []solver.Symbol) (*Answer, error) {
	a, ok := c.Lookup(predicate)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAtom, predicate)
	}
	if want := len(a.Inputs()); len(inputs) != want {
		return nil, fmt.Errorf("%w: &%s takes %d, got %d", ErrArity, predicate, want, len(inputs))
	}

	log := logging.Get(logging.CategoryAtoms).With("call", uuid.NewString(), "atom", predicate)
	log.Debug("evaluating &%s%s", predicate, solver.TupleKey(inputs))
	start := time.Now()
	ans, err := a.Evaluate(ctx, inputs)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		log.Error("&%s failed after %v: %v", predicate, elapsed, err)
	case ans.Inconsistent:
		outcome = metrics.OutcomeInconsistent
		log.Debug("&%s: store inconsistent, %d clauses learned", predicate, len(ans.Learned))
	default:
		log.Debug("&%s: %d tuples, %d clauses learned in %v", predicate, len(ans.Tuples), len(ans.Learned), elapsed)
	}
	metrics.ObserveEvaluation(predicate, outcome, elapsed)
	tuples := 0
	if ans != nil {
		tuples = len(ans.Tuples)
	}
	logging.Audit().AtomEvaluated(predicate, solver.TupleKey(inputs), outcome, tuples, elapsed)
	return ans, err
}
