package reasoner

import (
	"errors"
	"testing"

	"hexowl/internal/ontology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zooDoc() *ontology.Document {
	doc := ontology.NewDocument("urn:zoo")
	doc.AddSubClassOf("Dog", "Animal")
	doc.AddSubClassOf("Animal", "Living")
	doc.AddDisjointClasses("Dog", "Cat")
	doc.AddDomain("owns", "Person")
	doc.AddRange("owns", "Animal")
	doc.AddSubPropertyOf("walks", "caresFor")
	doc.AddDomain("age", "Living")
	doc.AddClassAssertion(ontology.ClassAssertion{Class: "Dog", Individual: "rex"})
	doc.AddObjectAssertion(ontology.ObjectAssertion{Property: "owns", Subject: "ann", Object: "tom"})
	doc.AddObjectAssertion(ontology.ObjectAssertion{Property: "walks", Subject: "ann", Object: "rex"})
	doc.AddDataAssertion(ontology.DataAssertion{Property: "age", Subject: "rex", Value: ontology.IntValue(3)})
	return doc
}

func TestStructuralInstances(t *testing.T) {
	r, err := Structural{}.New(zooDoc())
	require.NoError(t, err)
	defer r.Dispose()

	require.True(t, r.IsConsistent())

	animals, err := r.Instances("Animal")
	require.NoError(t, err)
	assert.Equal(t, []string{"rex", "tom"}, animals)

	people, err := r.Instances("Person")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, people)

	all, err := r.Instances(ontology.Thing)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "rex", "tom"}, all)

	living, err := r.Instances("Living")
	require.NoError(t, err)
	assert.Equal(t, []string{"rex", "tom"}, living)
}

func TestStructuralPropertyValues(t *testing.T) {
	r, err := Structural{}.New(zooDoc())
	require.NoError(t, err)

	cares, err := r.ObjectValues("ann", "caresFor")
	require.NoError(t, err)
	assert.Equal(t, []string{"rex"}, cares)

	ages, err := r.DataValues("rex", "age")
	require.NoError(t, err)
	assert.Equal(t, []ontology.Literal{ontology.IntValue(3)}, ages)

	assert.Equal(t, []string{"Person"}, r.Domains("owns"))
	assert.Equal(t, []string{ontology.Thing}, r.Domains("walks"))
}

func TestStructuralDisjointness(t *testing.T) {
	doc := zooDoc()
	doc.AddClassAssertion(ontology.ClassAssertion{Class: "Cat", Individual: "rex"})

	r, err := Structural{}.New(doc)
	require.NoError(t, err)
	assert.False(t, r.IsConsistent())

	_, err = r.Instances("Dog")
	assert.True(t, errors.Is(err, ErrInconsistent))
	_, err = r.ObjectValues("ann", "owns")
	assert.True(t, errors.Is(err, ErrInconsistent))
}

func TestStructuralNothing(t *testing.T) {
	doc := ontology.NewDocument("urn:n")
	doc.AddSubClassOf("Impossible", ontology.Nothing)
	doc.AddClassAssertion(ontology.ClassAssertion{Class: "Impossible", Individual: "x"})

	r, err := Structural{}.New(doc)
	require.NoError(t, err)
	assert.False(t, r.IsConsistent())
}

func TestStructuralHierarchyCycle(t *testing.T) {
	doc := ontology.NewDocument("urn:c")
	doc.AddSubClassOf("A", "B")
	doc.AddSubClassOf("B", "A")
	doc.AddClassAssertion(ontology.ClassAssertion{Class: "A", Individual: "x"})

	r, err := Structural{}.New(doc)
	require.NoError(t, err)
	bs, err := r.Instances("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, bs)
}

func TestCountingReasoner(t *testing.T) {
	c := NewCounting(Structural{})
	r, err := c.New(zooDoc())
	require.NoError(t, err)

	r.IsConsistent()
	r.IsConsistent()
	_, _ = r.Instances("Dog")
	_, _ = r.DataValues("rex", "age")

	assert.Equal(t, int64(1), c.Builds())
	assert.Equal(t, int64(2), c.ConsistencyChecks())
	assert.Equal(t, int64(2), c.Queries())

	failing := NewCounting(FactoryFunc(func(*ontology.Document) (Reasoner, error) {
		return nil, errors.New("no")
	}))
	_, err = failing.New(zooDoc())
	assert.Error(t, err)
	assert.Equal(t, int64(0), failing.Builds())
}
