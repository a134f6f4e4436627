package atoms

import (
	"errors"

	"hexowl/internal/knowledge"
	"hexowl/internal/logging"
	"hexowl/internal/ontology"
	"hexowl/internal/reasoner"
	"hexowl/internal/solver"
)

// Store resolves store locations to contexts.
type Store interface {
	Get(location string) (*knowledge.Context, error)
}

func storeFor(s Store, location solver.Symbol) (*knowledge.Context, error) {
	return s.Get(location.Unquoted())
}

// Individuals and names travel as quoted IRIs.
func iriSymbol(iri string) solver.Symbol { return solver.Quoted(iri) }

// literalSymbol renders a data value the way the solver writes it.
func literalSymbol(l ontology.Literal) solver.Symbol {
	switch l.Kind {
	case ontology.IntLiteral:
		return solver.Int(l.Int)
	case ontology.BoolLiteral:
		return solver.Constant(l.Lexical())
	case ontology.OpaqueLiteral:
		if s, err := solver.ParseSymbol(l.Str); err == nil {
			return s
		}
	}
	return solver.Quoted(l.Str)
}

// readQuery runs fn against the store's current state. An inconsistent store
// yields an empty answer.
func readQuery(s Store, location solver.Symbol, fn func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error) (*Answer, error) {
	c, err := storeFor(s, location)
	if err != nil {
		return nil, err
	}
	ans := &Answer{}
	err = c.Read(func(r reasoner.Reasoner) error {
		if !r.IsConsistent() {
			ans.Inconsistent = true
			return nil
		}
		return fn(c, r, ans)
	})
	if errors.Is(err, reasoner.ErrInconsistent) {
		return &Answer{Inconsistent: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if ans.Inconsistent {
		logging.Get(logging.CategoryAtoms).Warn("store %s is inconsistent, answering empty", c.Location())
	}
	return ans, nil
}

// ClassQuery is &dl_c[location, class](individual).
type ClassQuery struct{ Store Store }

func (ClassQuery) Predicate() string   { return "dl_c" }
func (ClassQuery) Inputs() []InputType { return []InputType{ConstantInput, ConstantInput} }
func (ClassQuery) OutputArity() int    { return 1 }

func (q ClassQuery) Evaluate(_ solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return readQuery(q.Store, inputs[0], func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error {
		return classInstances(r, c.Expand(inputs[1].Unquoted()), ans)
	})
}

func classInstances(r reasoner.Reasoner, class string, ans *Answer) error {
	inds, err := r.Instances(class)
	if err != nil {
		return err
	}
	for _, ind := range inds {
		ans.Add(iriSymbol(ind))
	}
	return nil
}

// ObjectPropertyQuery is &dl_op[location, property](subject, object).
type ObjectPropertyQuery struct{ Store Store }

func (ObjectPropertyQuery) Predicate() string   { return "dl_op" }
func (ObjectPropertyQuery) Inputs() []InputType { return []InputType{ConstantInput, ConstantInput} }
func (ObjectPropertyQuery) OutputArity() int    { return 2 }

func (q ObjectPropertyQuery) Evaluate(_ solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return readQuery(q.Store, inputs[0], func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error {
		return objectExtension(r, c.Expand(inputs[1].Unquoted()), ans)
	})
}

// objectExtension walks domain classes, their instances, then each
// instance's values. Answer.Add drops pairs seen via another domain class.
func objectExtension(r reasoner.Reasoner, property string, ans *Answer) error {
	return eachSubject(r, property, func(subject string) error {
		objects, err := r.ObjectValues(subject, property)
		if err != nil {
			return err
		}
		for _, o := range objects {
			ans.Add(iriSymbol(subject), iriSymbol(o))
		}
		return nil
	})
}

// DataPropertyQuery is &dl_dp[location, property](subject, value).
type DataPropertyQuery struct{ Store Store }

func (DataPropertyQuery) Predicate() string   { return "dl_dp" }
func (DataPropertyQuery) Inputs() []InputType { return []InputType{ConstantInput, ConstantInput} }
func (DataPropertyQuery) OutputArity() int    { return 2 }

func (q DataPropertyQuery) Evaluate(_ solver.Context, inputs []solver.Symbol) (*Answer, error) {
	return readQuery(q.Store, inputs[0], func(c *knowledge.Context, r reasoner.Reasoner, ans *Answer) error {
		property := c.Expand(inputs[1].Unquoted())
		return eachSubject(r, property, func(subject string) error {
			values, err := r.DataValues(subject, property)
			if err != nil {
				return err
			}
			for _, v := range values {
				ans.Add(iriSymbol(subject), literalSymbol(v))
			}
			return nil
		})
	})
}

func eachSubject(r reasoner.Reasoner, property string, fn func(subject string) error) error {
	visited := make(map[string]bool)
	for _, domain := range r.Domains(property) {
		subjects, err := r.Instances(domain)
		if err != nil {
			return err
		}
		for _, s := range subjects {
			if visited[s] {
				continue
			}
			visited[s] = true
			if err := fn(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// SimplifyQuery is &dl_simplify[location, iri](name).
type SimplifyQuery struct{ Store Store }

func (SimplifyQuery) Predicate() string   { return "dl_simplify" }
func (SimplifyQuery) Inputs() []InputType { return []InputType{ConstantInput, ConstantInput} }
func (SimplifyQuery) OutputArity() int    { return 1 }

func (q SimplifyQuery) Evaluate(_ solver.Context, inputs []solver.Symbol) (*Answer, error) {
	c, err := storeFor(q.Store, inputs[0])
	if err != nil {
		return nil, err
	}
	ans := &Answer{}
	ans.Add(solver.Quoted(c.Simplify(inputs[1].Unquoted())))
	return ans, nil
}
