package solver

import (
	"sort"
	"sync"
)

// MemoryContext is a map-backed Context. The CLI uses it for one-shot
// read-only queries and tests use it to script assignments.
type MemoryContext struct {
	mu        sync.Mutex
	atoms     map[string]AssignedAtom
	instances map[string][]Instance
	outputs   map[string][][]Symbol
	learned   []Nogood
}

// NewMemoryContext returns an empty context.
func NewMemoryContext() *MemoryContext {
	return &MemoryContext{
		atoms:     make(map[string]AssignedAtom),
		instances: make(map[string][]Instance),
		outputs:   make(map[string][][]Symbol),
	}
}

// Set assigns a truth value to an atom, registering it if new.
func (m *MemoryContext) Set(a Atom, t Truth) *MemoryContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atoms[a.Key()] = AssignedAtom{Atom: a, Truth: t}
	return m
}

// AddInstance registers an external atom grounding.
func (m *MemoryContext) AddInstance(predicate string, inputs ...Symbol) *MemoryContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.instances[predicate] {
		if SameSymbols(in.Inputs, inputs) {
			return m
		}
	}
	m.instances[predicate] = append(m.instances[predicate], Instance{Predicate: predicate, Inputs: append([]Symbol(nil), inputs...)})
	return m
}

// AddOutputTuple registers a replacement atom the solver knows for an instance.
func (m *MemoryContext) AddOutputTuple(predicate string, inputs []Symbol, tuple ...Symbol) *MemoryContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := OutputAtomFor(predicate, inputs, nil).Key()
	m.outputs[k] = append(m.outputs[k], append([]Symbol(nil), tuple...))
	return m
}

// Atoms implements Assignment. Results are ordered by atom key.
func (m *MemoryContext) Atoms(predicate string) []AssignedAtom {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AssignedAtom
	for _, aa := range m.atoms {
		if aa.Atom.Predicate == predicate {
			out = append(out, aa)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Atom.Key() < out[j].Atom.Key() })
	return out
}

// Truth implements Assignment.
func (m *MemoryContext) Truth(a Atom) Truth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.atoms[a.Key()].Truth
}

// Instances implements Context.
func (m *MemoryContext) Instances(predicate string) []Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Instance(nil), m.instances[predicate]...)
}

// OutputAtom implements Context.
func (m *MemoryContext) OutputAtom(predicate string, inputs []Symbol, tuple []Symbol) Atom {
	return OutputAtomFor(predicate, inputs, tuple)
}

// OutputTuples implements Context.
func (m *MemoryContext) OutputTuples(predicate string, inputs []Symbol) [][]Symbol {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Symbol(nil), m.outputs[OutputAtomFor(predicate, inputs, nil).Key()]...)
}

// Learn implements Context.
func (m *MemoryContext) Learn(n Nogood) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learned = append(m.learned, n.Normalize())
}

// Learned returns the clauses received so far.
func (m *MemoryContext) Learned() []Nogood {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Nogood(nil), m.learned...)
}

// OutputAtomFor is the default replacement-atom naming: ext_<pred>(inputs..., tuple...).
func OutputAtomFor(predicate string, inputs []Symbol, tuple []Symbol) Atom {
	args := make([]Symbol, 0, len(inputs)+len(tuple))
	args = append(args, inputs...)
	args = append(args, tuple...)
	return Atom{Predicate: "ext_" + predicate, Args: args}
}
