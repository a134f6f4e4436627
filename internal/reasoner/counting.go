package reasoner

import (
	"sync/atomic"

	"hexowl/internal/ontology"
)

// Counting wraps a Factory and counts how often reasoners are built and
// queried. Hosts use it to verify that learned clauses spare reasoner calls.
type Counting struct {
	Inner Factory

	builds      atomic.Int64
	consistency atomic.Int64
	queries     atomic.Int64
}

// NewCounting wraps inner.
func NewCounting(inner Factory) *Counting {
	return &Counting{Inner: inner}
}

// New implements Factory.
func (c *Counting) New(doc *ontology.Document) (Reasoner, error) {
	r, err := c.Inner.New(doc)
	if err != nil {
		return nil, err
	}
	c.builds.Add(1)
	return &countingReasoner{Reasoner: r, owner: c}, nil
}

// Builds is the number of reasoners built.
func (c *Counting) Builds() int64 { return c.builds.Load() }

// ConsistencyChecks is the number of IsConsistent calls.
func (c *Counting) ConsistencyChecks() int64 { return c.consistency.Load() }

// Queries is the number of instance and value queries.
func (c *Counting) Queries() int64 { return c.queries.Load() }

type countingReasoner struct {
	Reasoner
	owner *Counting
}

func (r *countingReasoner) IsConsistent() bool {
	r.owner.consistency.Add(1)
	return r.Reasoner.IsConsistent()
}

func (r *countingReasoner) Instances(class string) ([]string, error) {
	r.owner.queries.Add(1)
	return r.Reasoner.Instances(class)
}

func (r *countingReasoner) ObjectValues(subject, property string) ([]string, error) {
	r.owner.queries.Add(1)
	return r.Reasoner.ObjectValues(subject, property)
}

func (r *countingReasoner) DataValues(subject, property string) ([]ontology.Literal, error) {
	r.owner.queries.Add(1)
	return r.Reasoner.DataValues(subject, property)
}
