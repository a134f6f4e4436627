package solver

import (
	"sort"
	"strings"
)

// Truth is the value of an atom under a (possibly partial) assignment.
type Truth int

const (
	Unknown Truth = iota
	True
	False
)

func (t Truth) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unknown"
}

// Atom is a ground atom p(t1, ..., tn).
type Atom struct {
	Predicate string
	Args      []Symbol
}

// NewAtom builds an atom, copying args.
func NewAtom(predicate string, args ...Symbol) Atom {
	return Atom{Predicate: predicate, Args: append([]Symbol(nil), args...)}
}

// Key is the canonical text of the atom, used for identity and ordering.
func (a Atom) Key() string {
	if len(a.Args) == 0 {
		return a.Predicate
	}
	parts := make([]string, len(a.Args))
	for i, s := range a.Args {
		parts[i] = s.Value()
	}
	return a.Predicate + "(" + strings.Join(parts, ",") + ")"
}

func (a Atom) String() string { return a.Key() }

// Literal is an atom with a polarity.
type Literal struct {
	Atom     Atom
	Positive bool
}

// Pos and Neg build literals.
func Pos(a Atom) Literal { return Literal{Atom: a, Positive: true} }
func Neg(a Atom) Literal { return Literal{Atom: a, Positive: false} }

// Negate flips the polarity.
func (l Literal) Negate() Literal { return Literal{Atom: l.Atom, Positive: !l.Positive} }

// HoldsUnder reports whether the literal is satisfied by truth t.
func (l Literal) HoldsUnder(t Truth) bool {
	if l.Positive {
		return t == True
	}
	return t == False
}

func (l Literal) String() string {
	if l.Positive {
		return l.Atom.Key()
	}
	return "-" + l.Atom.Key()
}

// Nogood is a set of literals that must never be satisfied together.
type Nogood []Literal

// Normalize sorts literals and drops exact duplicates.
func (n Nogood) Normalize() Nogood {
	seen := make(map[string]bool, len(n))
	out := make(Nogood, 0, len(n))
	for _, l := range n {
		k := l.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Key is a canonical representation; equal nogoods have equal keys.
func (n Nogood) Key() string {
	norm := n.Normalize()
	parts := make([]string, len(norm))
	for i, l := range norm {
		parts[i] = l.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (n Nogood) String() string { return n.Key() }

// AssignedAtom is an atom known to the solver together with its current value.
type AssignedAtom struct {
	Atom  Atom
	Truth Truth
}

// Assignment is the solver's current, possibly partial, interpretation.
type Assignment interface {
	// Atoms returns every atom of predicate known to the solver.
	Atoms(predicate string) []AssignedAtom
	// Truth returns the value of a single atom.
	Truth(a Atom) Truth
}

// Instance is one grounding of an external atom known to the solver.
type Instance struct {
	Predicate string
	Inputs    []Symbol
}

// Context is everything an external atom may ask of the solver runtime.
type Context interface {
	Assignment
	// Instances lists the known groundings of an external atom.
	Instances(predicate string) []Instance
	// OutputAtom names the replacement atom standing for
	// &predicate[inputs](tuple) in the solver.
	OutputAtom(predicate string, inputs []Symbol, tuple []Symbol) Atom
	// OutputTuples lists the output tuples the solver knows for an instance.
	OutputTuples(predicate string, inputs []Symbol) [][]Symbol
	// Learn hands a conflict clause to the solver.
	Learn(n Nogood)
}

// SameSymbols compares two symbol sequences.
func SameSymbols(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// TupleKey renders a tuple canonically.
func TupleKey(tuple []Symbol) string {
	parts := make([]string, len(tuple))
	for i, s := range tuple {
		parts[i] = s.Value()
	}
	return "(" + strings.Join(parts, ",") + ")"
}
