// Package ontology holds the mutable in-memory description-logic document:
// the ABox assertions the evaluator edits and the TBox axioms the reasoner
// reads. It knows nothing about namespaces or solvers.
package ontology

import (
	"fmt"
	"sort"
	"strconv"
)

// Well-known IRIs.
const (
	Thing   = "http://www.w3.org/2002/07/owl#Thing"
	Nothing = "http://www.w3.org/2002/07/owl#Nothing"
)

// LiteralKind tags the variants of Literal.
type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	BoolLiteral
	IntLiteral
	OpaqueLiteral
)

func (k LiteralKind) String() string {
	switch k {
	case StringLiteral:
		return "string"
	case BoolLiteral:
		return "bool"
	case IntLiteral:
		return "int"
	case OpaqueLiteral:
		return "opaque"
	}
	return fmt.Sprintf("LiteralKind(%d)", int(k))
}

// Literal is a data value. Exactly one of the value fields is meaningful,
// selected by Kind; Opaque keeps raw symbol text.
type Literal struct {
	Kind LiteralKind
	Str  string
	Bool bool
	Int  int64
}

func StringValue(s string) Literal { return Literal{Kind: StringLiteral, Str: s} }
func BoolValue(b bool) Literal     { return Literal{Kind: BoolLiteral, Bool: b} }
func IntValue(i int64) Literal     { return Literal{Kind: IntLiteral, Int: i} }
func OpaqueValue(s string) Literal { return Literal{Kind: OpaqueLiteral, Str: s} }

// Lexical is the literal's lexical form.
func (l Literal) Lexical() string {
	switch l.Kind {
	case BoolLiteral:
		return strconv.FormatBool(l.Bool)
	case IntLiteral:
		return strconv.FormatInt(l.Int, 10)
	}
	return l.Str
}

func (l Literal) String() string {
	if l.Kind == StringLiteral {
		return strconv.Quote(l.Str)
	}
	return l.Lexical()
}

// ClassAssertion states ind ∈ Class.
type ClassAssertion struct {
	Class      string
	Individual string
}

// ObjectAssertion states Property(Subject, Object).
type ObjectAssertion struct {
	Property string
	Subject  string
	Object   string
}

// DataAssertion states Property(Subject, Value).
type DataAssertion struct {
	Property string
	Subject  string
	Value    Literal
}

// Document is a set of axioms. It is not safe for concurrent mutation; the
// owning store context serializes access.
type Document struct {
	IRI string

	individuals map[string]bool
	classes     map[ClassAssertion]bool
	objects     map[ObjectAssertion]bool
	data        map[DataAssertion]bool

	subClassOf    map[string][]string
	subPropertyOf map[string][]string
	disjoint      [][2]string
	domains       map[string][]string
	ranges        map[string][]string

	version uint64
}

// NewDocument returns an empty document.
func NewDocument(iri string) *Document {
	return &Document{
		IRI:           iri,
		individuals:   make(map[string]bool),
		classes:       make(map[ClassAssertion]bool),
		objects:       make(map[ObjectAssertion]bool),
		data:          make(map[DataAssertion]bool),
		subClassOf:    make(map[string][]string),
		subPropertyOf: make(map[string][]string),
		domains:       make(map[string][]string),
		ranges:        make(map[string][]string),
	}
}

// Version increases on every effective mutation.
func (d *Document) Version() uint64 { return d.version }

// DeclareIndividual records a named individual with no assertions.
func (d *Document) DeclareIndividual(iri string) {
	d.individuals[iri] = true
}

// AddClassAssertion adds the axiom and reports whether the document changed.
func (d *Document) AddClassAssertion(a ClassAssertion) bool {
	if d.classes[a] {
		return false
	}
	d.classes[a] = true
	d.version++
	return true
}

// RemoveClassAssertion removes the axiom and reports whether the document changed.
func (d *Document) RemoveClassAssertion(a ClassAssertion) bool {
	if !d.classes[a] {
		return false
	}
	delete(d.classes, a)
	d.version++
	return true
}

// AddObjectAssertion adds the axiom and reports whether the document changed.
func (d *Document) AddObjectAssertion(a ObjectAssertion) bool {
	if d.objects[a] {
		return false
	}
	d.objects[a] = true
	d.version++
	return true
}

// RemoveObjectAssertion removes the axiom and reports whether the document changed.
func (d *Document) RemoveObjectAssertion(a ObjectAssertion) bool {
	if !d.objects[a] {
		return false
	}
	delete(d.objects, a)
	d.version++
	return true
}

// AddDataAssertion adds the axiom and reports whether the document changed.
func (d *Document) AddDataAssertion(a DataAssertion) bool {
	if d.data[a] {
		return false
	}
	d.data[a] = true
	d.version++
	return true
}

// RemoveDataAssertion removes the axiom and reports whether the document changed.
func (d *Document) RemoveDataAssertion(a DataAssertion) bool {
	if !d.data[a] {
		return false
	}
	delete(d.data, a)
	d.version++
	return true
}

// AddSubClassOf records sub ⊑ super.
func (d *Document) AddSubClassOf(sub, super string) {
	d.subClassOf[sub] = appendUnique(d.subClassOf[sub], super)
	d.version++
}

// AddSubPropertyOf records sub ⊑ super for properties.
func (d *Document) AddSubPropertyOf(sub, super string) {
	d.subPropertyOf[sub] = appendUnique(d.subPropertyOf[sub], super)
	d.version++
}

// AddDisjointClasses records that a and b share no instances.
func (d *Document) AddDisjointClasses(a, b string) {
	d.disjoint = append(d.disjoint, [2]string{a, b})
	d.version++
}

// AddDomain records a property domain.
func (d *Document) AddDomain(property, class string) {
	d.domains[property] = appendUnique(d.domains[property], class)
	d.version++
}

// AddRange records an object property range.
func (d *Document) AddRange(property, class string) {
	d.ranges[property] = appendUnique(d.ranges[property], class)
	d.version++
}

// Individuals returns every declared or mentioned individual, sorted.
func (d *Document) Individuals() []string {
	seen := make(map[string]bool, len(d.individuals))
	for i := range d.individuals {
		seen[i] = true
	}
	for a := range d.classes {
		seen[a.Individual] = true
	}
	for a := range d.objects {
		seen[a.Subject] = true
		seen[a.Object] = true
	}
	for a := range d.data {
		seen[a.Subject] = true
	}
	return sortedKeys(seen)
}

// ClassAssertions returns the asserted class memberships, sorted.
func (d *Document) ClassAssertions() []ClassAssertion {
	out := make([]ClassAssertion, 0, len(d.classes))
	for a := range d.classes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Individual < out[j].Individual
	})
	return out
}

// ObjectAssertions returns the asserted object property values, sorted.
func (d *Document) ObjectAssertions() []ObjectAssertion {
	out := make([]ObjectAssertion, 0, len(d.objects))
	for a := range d.objects {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Property != out[j].Property {
			return out[i].Property < out[j].Property
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Object < out[j].Object
	})
	return out
}

// DataAssertions returns the asserted data property values, sorted.
func (d *Document) DataAssertions() []DataAssertion {
	out := make([]DataAssertion, 0, len(d.data))
	for a := range d.data {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Property != out[j].Property {
			return out[i].Property < out[j].Property
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Value.String() < out[j].Value.String()
	})
	return out
}

// SuperClasses returns the direct told superclasses of class.
func (d *Document) SuperClasses(class string) []string {
	return append([]string(nil), d.subClassOf[class]...)
}

// SuperProperties returns the direct told superproperties of property.
func (d *Document) SuperProperties(property string) []string {
	return append([]string(nil), d.subPropertyOf[property]...)
}

// DisjointPairs returns the disjointness axioms.
func (d *Document) DisjointPairs() [][2]string {
	return append([][2]string(nil), d.disjoint...)
}

// Domains returns the told domains of property.
func (d *Document) Domains(property string) []string {
	return append([]string(nil), d.domains[property]...)
}

// Ranges returns the told ranges of property.
func (d *Document) Ranges(property string) []string {
	return append([]string(nil), d.ranges[property]...)
}

// Properties returns every property mentioned in a domain, range, hierarchy
// or assertion axiom, sorted.
func (d *Document) Properties() []string {
	seen := make(map[string]bool)
	for p := range d.domains {
		seen[p] = true
	}
	for p := range d.ranges {
		seen[p] = true
	}
	for p, supers := range d.subPropertyOf {
		seen[p] = true
		for _, s := range supers {
			seen[s] = true
		}
	}
	for a := range d.objects {
		seen[a.Property] = true
	}
	for a := range d.data {
		seen[a.Property] = true
	}
	return sortedKeys(seen)
}

// Fingerprint is a canonical dump of the ABox, used to compare states.
func (d *Document) Fingerprint() string {
	var out []byte
	for _, a := range d.ClassAssertions() {
		out = append(out, fmt.Sprintf("C %s %s\n", a.Class, a.Individual)...)
	}
	for _, a := range d.ObjectAssertions() {
		out = append(out, fmt.Sprintf("O %s %s %s\n", a.Property, a.Subject, a.Object)...)
	}
	for _, a := range d.DataAssertions() {
		out = append(out, fmt.Sprintf("D %s %s %s\n", a.Property, a.Subject, a.Value)...)
	}
	return string(out)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
