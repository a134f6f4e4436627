package atoms

import (
	"hexowl/internal/knowledge"
	"hexowl/internal/learning"
	"hexowl/internal/logging"
	"hexowl/internal/reasoner"
	"hexowl/internal/scenario"
	"hexowl/internal/solver"
)

// Protocol is the shared modify, query and learn sequence of the
// mutation-aware atoms. Inputs are (location, delta, selector, extra...).
type Protocol struct {
	Store Store
	// Learn enables clause generation.
	Learn     bool
	Generator learning.Generator
}

// EvalFunc computes the answer against the mutated store. It is only called
// when the mutated store is consistent.
type EvalFunc func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error

// Run extracts the scenario, evaluates eval against the mutated store,
// reverts and learns. The store is reverted on every path.
func (p Protocol) Run(ctx solver.Context, a Atom, inputs []solver.Symbol, eval EvalFunc) (*Answer, error) {
	c, err := storeFor(p.Store, inputs[0])
	if err != nil {
		return nil, err
	}
	delta, selector := inputs[1].Unquoted(), inputs[2]
	sc := scenario.Extract(ctx, delta, selector, c)

	ans := &Answer{}
	err = c.Hypothetically(sc.Edits, func(r reasoner.Reasoner) error {
		if !r.IsConsistent() {
			ans.Inconsistent = true
			return nil
		}
		return eval(c, r, ans)
	})
	if err != nil {
		return nil, err
	}
	if ans.Inconsistent {
		logging.Get(logging.CategoryAtoms).Warn("&%s: scenario %s/%s makes %s inconsistent, answering empty",
			a.Predicate(), delta, selector, c.Location())
	}

	if p.Learn {
		call := learning.Call{Predicate: a.Predicate(), Inputs: inputs, OutputArity: a.OutputArity()}
		ans.Learned = p.Generator.Learn(ctx, call, sc, ans.Tuples)
	}
	return ans, nil
}

var mutationInputs = []InputType{ConstantInput, PredicateInput, ConstantInput}

// ConsistencyQuery is &dl_consistent[location, delta, selector](). It holds
// when the scenario leaves the store consistent.
type ConsistencyQuery struct{ Protocol Protocol }

func (ConsistencyQuery) Predicate() string   { return "dl_consistent" }
func (ConsistencyQuery) Inputs() []InputType { return mutationInputs }
func (ConsistencyQuery) OutputArity() int    { return 0 }

func (q ConsistencyQuery) Evaluate(ctx solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return q.Protocol.Run(ctx, q, inputs, func(_ *knowledge.Context, _ reasoner.Reasoner, ans *Answer) error {
		ans.Add()
		return nil
	})
}

// MutatedClassQuery is &dl_c_m[location, delta, selector, class](individual).
type MutatedClassQuery struct{ Protocol Protocol }

func (MutatedClassQuery) Predicate() string { return "dl_c_m" }
func (MutatedClassQuery) Inputs() []InputType {
	return append(append([]InputType(nil), mutationInputs...), ConstantInput)
}
func (MutatedClassQuery) OutputArity() int { return 1 }

func (q MutatedClassQuery) Evaluate(ctx solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return q.Protocol.Run(ctx, q, inputs, func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error {
		return classInstances(r, c.Expand(inputs[3].Unquoted()), ans)
	})
}

// MutatedObjectPropertyQuery is
// &dl_op_m[location, delta, selector, property](subject, object).
type MutatedObjectPropertyQuery struct{ Protocol Protocol }

func (MutatedObjectPropertyQuery) Predicate() string { return "dl_op_m" }
func (MutatedObjectPropertyQuery) Inputs() []InputType {
	return append(append([]InputType(nil), mutationInputs...), ConstantInput)
}
func (MutatedObjectPropertyQuery) OutputArity() int { return 2 }

func (q MutatedObjectPropertyQuery) Evaluate(ctx solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return q.Protocol.Run(ctx, q, inputs, func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error {
		return objectExtension(r, c.Expand(inputs[3].Unquoted()), ans)
	})
}

// Options configure the standard catalogue.
type Options struct {
	Learn          bool
	IncludeCurrent bool
}

// Standard returns a catalogue with every ontology atom bound to store.
func Standard(store Store, opts Options) *Catalogue {
	p := Protocol{Store: store, Learn: opts.Learn, Generator: learning.Generator{IncludeCurrent: opts.IncludeCurrent}}
	c := NewCatalogue()
	c.Register(ClassQuery{Store: store})
	c.Register(ObjectPropertyQuery{Store: store})
	c.Register(DataPropertyQuery{Store: store})
	c.Register(SimplifyQuery{Store: store})
	c.Register(ConsistencyQuery{Protocol: p})
	c.Register(MutatedClassQuery{Protocol: p})
	c.Register(MutatedObjectPropertyQuery{Protocol: p})
	return c
}
