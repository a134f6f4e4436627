// Package reasoner answers entailment questions over an ontology document:
// consistency, class instances, and property values. The store context owns
// one Reasoner at a time and rebuilds it after every mutation.
package reasoner

import (
	"errors"

	"hexowl/internal/ontology"
)

// ErrInconsistent is returned by instance and value queries on an
// inconsistent document.
var ErrInconsistent = errors.New("ontology is inconsistent")

// Reasoner is a snapshot view of a document. It must not be used after the
// document changes; the owner disposes it and builds a fresh one.
type Reasoner interface {
	// IsConsistent reports whether the document has a model.
	IsConsistent() bool
	// Instances returns the named individuals entailed to belong to class.
	Instances(class string) ([]string, error)
	// ObjectValues returns the entailed objects of property for subject.
	ObjectValues(subject, property string) ([]string, error)
	// DataValues returns the entailed literals of property for subject.
	DataValues(subject, property string) ([]ontology.Literal, error)
	// Domains returns the classes a property's subjects belong to; owl:Thing
	// when none are declared.
	Domains(property string) []string
	// Dispose releases the snapshot.
	Dispose()
}

// Factory builds reasoners.
type Factory interface {
	New(doc *ontology.Document) (Reasoner, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(doc *ontology.Document) (Reasoner, error)

// New implements Factory.
func (f FactoryFunc) New(doc *ontology.Document) (Reasoner, error) { return f(doc) }
