package modification

import (
	"errors"
	"fmt"

	"hexowl/internal/ontology"
	"hexowl/internal/solver"
)

var (
	// ErrUnknownKind is returned for modifier functors outside the decoding table.
	ErrUnknownKind = errors.New("unknown modification kind")
	// ErrArity is returned when a known kind has the wrong number of arguments.
	ErrArity = errors.New("wrong number of modification arguments")
)

// Expander resolves prefixed names to IRIs.
type Expander interface {
	Expand(value string) string
}

// ExpandFunc adapts a function to Expander.
type ExpandFunc func(string) string

func (f ExpandFunc) Expand(v string) string { return f(v) }

var arities = map[Kind]int{
	AddClass:  2,
	DelClass:  2,
	AddObject: 3,
	DelObject: 3,
	AddData:   3,
	DelData:   3,
}

// Decode turns a modifier term (kind, arg1, arg2, ...) into an Edit. Names
// are unquoted and passed through ns when it is non-nil; data values are decoded by
// DecodeLiteral.
func Decode(modifier solver.Symbol, ns Expander) (Edit, error) {
	tuple := modifier.Tuple()
	kind := Kind(tuple[0].Value())
	want, ok := arities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownKind, kind, modifier)
	}
	args := tuple[1:]
	if len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d, got %d in %s", ErrArity, kind, want, len(args), modifier)
	}
	name := func(i int) string {
		if ns == nil {
			return args[i].Unquoted()
		}
		return ns.Expand(args[i].Unquoted())
	}

	switch kind {
	case AddClass:
		return AddClassAssertion{Class: name(0), Individual: name(1)}, nil
	case DelClass:
		return RemoveClassAssertion{Class: name(0), Individual: name(1)}, nil
	case AddObject:
		return AddObjectPropertyAssertion{Property: name(0), Subject: name(1), Object: name(2)}, nil
	case DelObject:
		return RemoveObjectPropertyAssertion{Property: name(0), Subject: name(1), Object: name(2)}, nil
	case AddData:
		return AddDataPropertyAssertion{Property: name(0), Individual: name(1), Value: DecodeLiteral(args[2])}, nil
	default:
		return RemoveDataPropertyAssertion{Property: name(0), Individual: name(1), Value: DecodeLiteral(args[2])}, nil
	}
}

// DecodeLiteral applies the fixed value rule: quoted text is a string,
// true/false a boolean, an integer an int, anything else an opaque symbol
// kept verbatim.
func DecodeLiteral(s solver.Symbol) ontology.Literal {
	if s.IsQuoted() {
		return ontology.StringValue(s.Unquoted())
	}
	switch s.Value() {
	case "true":
		return ontology.BoolValue(true)
	case "false":
		return ontology.BoolValue(false)
	}
	if i, ok := s.IntValue(); ok {
		return ontology.IntValue(i)
	}
	return ontology.OpaqueValue(s.Value())
}
