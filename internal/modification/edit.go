// Package modification describes atomic ontology edits and decodes them from
// the solver's modifier terms, e.g. addc(ex:Dog, ex:rex).
package modification

import (
	"errors"
	"fmt"

	"hexowl/internal/ontology"
)

// Kind tags an Edit variant.
type Kind string

const (
	AddClass  Kind = "addc"
	DelClass  Kind = "delc"
	AddObject Kind = "addop"
	DelObject Kind = "delop"
	AddData   Kind = "adddp"
	DelData   Kind = "deldp"
)

// ErrInvalid is returned by Validate for edits with empty names.
var ErrInvalid = errors.New("invalid edit")

// Edit is one atomic change to a document.
type Edit interface {
	Kind() Kind
	// Apply changes doc and reports whether anything actually changed.
	Apply(doc *ontology.Document) bool
	// Inverse returns the edit undoing this one.
	Inverse() Edit
	Validate() error
	String() string
}

type AddClassAssertion struct{ Class, Individual string }
type RemoveClassAssertion struct{ Class, Individual string }
type AddObjectPropertyAssertion struct{ Property, Subject, Object string }
type RemoveObjectPropertyAssertion struct{ Property, Subject, Object string }

type AddDataPropertyAssertion struct {
	Property   string
	Individual string
	Value      ontology.Literal
}

type RemoveDataPropertyAssertion struct {
	Property   string
	Individual string
	Value      ontology.Literal
}

func (e AddClassAssertion) Kind() Kind             { return AddClass }
func (e RemoveClassAssertion) Kind() Kind          { return DelClass }
func (e AddObjectPropertyAssertion) Kind() Kind    { return AddObject }
func (e RemoveObjectPropertyAssertion) Kind() Kind { return DelObject }
func (e AddDataPropertyAssertion) Kind() Kind      { return AddData }
func (e RemoveDataPropertyAssertion) Kind() Kind   { return DelData }

func (e AddClassAssertion) axiom() ontology.ClassAssertion {
	return ontology.ClassAssertion{Class: e.Class, Individual: e.Individual}
}

func (e RemoveClassAssertion) axiom() ontology.ClassAssertion {
	return ontology.ClassAssertion{Class: e.Class, Individual: e.Individual}
}

func (e AddObjectPropertyAssertion) axiom() ontology.ObjectAssertion {
	return ontology.ObjectAssertion{Property: e.Property, Subject: e.Subject, Object: e.Object}
}

func (e RemoveObjectPropertyAssertion) axiom() ontology.ObjectAssertion {
	return ontology.ObjectAssertion{Property: e.Property, Subject: e.Subject, Object: e.Object}
}

func (e AddDataPropertyAssertion) axiom() ontology.DataAssertion {
	return ontology.DataAssertion{Property: e.Property, Subject: e.Individual, Value: e.Value}
}

func (e RemoveDataPropertyAssertion) axiom() ontology.DataAssertion {
	return ontology.DataAssertion{Property: e.Property, Subject: e.Individual, Value: e.Value}
}

func (e AddClassAssertion) Apply(doc *ontology.Document) bool {
	return doc.AddClassAssertion(e.axiom())
}

func (e RemoveClassAssertion) Apply(doc *ontology.Document) bool {
	return doc.RemoveClassAssertion(e.axiom())
}

func (e AddObjectPropertyAssertion) Apply(doc *ontology.Document) bool {
	return doc.AddObjectAssertion(e.axiom())
}

func (e RemoveObjectPropertyAssertion) Apply(doc *ontology.Document) bool {
	return doc.RemoveObjectAssertion(e.axiom())
}

func (e AddDataPropertyAssertion) Apply(doc *ontology.Document) bool {
	return doc.AddDataAssertion(e.axiom())
}

func (e RemoveDataPropertyAssertion) Apply(doc *ontology.Document) bool {
	return doc.RemoveDataAssertion(e.axiom())
}

func (e AddClassAssertion) Inverse() Edit    { return RemoveClassAssertion(e) }
func (e RemoveClassAssertion) Inverse() Edit { return AddClassAssertion(e) }
func (e AddObjectPropertyAssertion) Inverse() Edit {
	return RemoveObjectPropertyAssertion(e)
}
func (e RemoveObjectPropertyAssertion) Inverse() Edit {
	return AddObjectPropertyAssertion(e)
}
func (e AddDataPropertyAssertion) Inverse() Edit    { return RemoveDataPropertyAssertion(e) }
func (e RemoveDataPropertyAssertion) Inverse() Edit { return AddDataPropertyAssertion(e) }

func (e AddClassAssertion) Validate() error    { return nonEmpty(e, e.Class, e.Individual) }
func (e RemoveClassAssertion) Validate() error { return nonEmpty(e, e.Class, e.Individual) }
func (e AddObjectPropertyAssertion) Validate() error {
	return nonEmpty(e, e.Property, e.Subject, e.Object)
}
func (e RemoveObjectPropertyAssertion) Validate() error {
	return nonEmpty(e, e.Property, e.Subject, e.Object)
}
func (e AddDataPropertyAssertion) Validate() error    { return nonEmpty(e, e.Property, e.Individual) }
func (e RemoveDataPropertyAssertion) Validate() error { return nonEmpty(e, e.Property, e.Individual) }

func (e AddClassAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Kind(), e.Class, e.Individual)
}
func (e RemoveClassAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Kind(), e.Class, e.Individual)
}
func (e AddObjectPropertyAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", e.Kind(), e.Property, e.Subject, e.Object)
}
func (e RemoveObjectPropertyAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", e.Kind(), e.Property, e.Subject, e.Object)
}
func (e AddDataPropertyAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", e.Kind(), e.Property, e.Individual, e.Value)
}
func (e RemoveDataPropertyAssertion) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", e.Kind(), e.Property, e.Individual, e.Value)
}

func nonEmpty(e Edit, names ...string) error {
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: %s has an empty name", ErrInvalid, e.Kind())
		}
	}
	return nil
}

// ValidateAll checks every edit before any is applied.
func ValidateAll(edits []Edit) error {
	for i, e := range edits {
		if e == nil {
			return fmt.Errorf("%w: edit %d is nil", ErrInvalid, i)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return nil
}
