package ontology

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hexowl/internal/logging"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned for documents that parse but do not describe a
// valid ontology.
var ErrMalformed = errors.New("malformed ontology document")

// documentFile is the on-disk YAML layout.
//
//	iri: http://example.org/zoo
//	prefixes: {zoo: "http://example.org/zoo#"}
//	subclass_of: {zoo:Dog: [zoo:Animal]}
//	disjoint: [[zoo:Dog, zoo:Cat]]
//	individuals: {zoo:rex: [zoo:Dog]}
//	object_properties: {zoo:owns: {domain: [zoo:Person], range: [zoo:Animal]}}
//	data_properties: {zoo:age: {domain: [zoo:Animal]}}
//	object_assertions: [{property: zoo:owns, subject: zoo:ann, object: zoo:rex}]
//	data_assertions: [{property: zoo:age, subject: zoo:rex, value: 3}]
type documentFile struct {
	IRI              string                  `yaml:"iri"`
	Prefixes         map[string]string       `yaml:"prefixes"`
	SubClassOf       map[string][]string     `yaml:"subclass_of"`
	Disjoint         [][]string              `yaml:"disjoint"`
	Individuals      map[string][]string     `yaml:"individuals"`
	ObjectProperties map[string]propertyFile `yaml:"object_properties"`
	DataProperties   map[string]propertyFile `yaml:"data_properties"`
	ObjectAssertions []objectAssertionFile   `yaml:"object_assertions"`
	DataAssertions   []dataAssertionFile     `yaml:"data_assertions"`
}

type propertyFile struct {
	Domain        []string `yaml:"domain"`
	Range         []string `yaml:"range"`
	SubPropertyOf []string `yaml:"subproperty_of"`
}

type objectAssertionFile struct {
	Property string `yaml:"property"`
	Subject  string `yaml:"subject"`
	Object   string `yaml:"object"`
}

type dataAssertionFile struct {
	Property string    `yaml:"property"`
	Subject  string    `yaml:"subject"`
	Value    yaml.Node `yaml:"value"`
}

// LoadFile reads a YAML ontology document from disk.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML ontology document.
func Load(r io.Reader) (*Document, error) {
	var df documentFile
	if err := yaml.NewDecoder(r).Decode(&df); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("parse ontology: %w", err)
	}

	expand := func(v string) string {
		if i := strings.Index(v, ":"); i > 0 && !strings.HasPrefix(v[i+1:], "/") {
			if base, ok := df.Prefixes[v[:i]]; ok {
				return base + v[i+1:]
			}
		}
		return v
	}

	doc := NewDocument(df.IRI)
	for sub, supers := range df.SubClassOf {
		for _, super := range supers {
			doc.AddSubClassOf(expand(sub), expand(super))
		}
	}
	for i, pair := range df.Disjoint {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: disjoint entry %d needs at least two classes", ErrMalformed, i)
		}
		for a := 0; a < len(pair); a++ {
			for b := a + 1; b < len(pair); b++ {
				doc.AddDisjointClasses(expand(pair[a]), expand(pair[b]))
			}
		}
	}
	for ind, classes := range df.Individuals {
		doc.DeclareIndividual(expand(ind))
		for _, c := range classes {
			doc.AddClassAssertion(ClassAssertion{Class: expand(c), Individual: expand(ind)})
		}
	}
	for _, props := range []map[string]propertyFile{df.ObjectProperties, df.DataProperties} {
		for p, pf := range props {
			for _, c := range pf.Domain {
				doc.AddDomain(expand(p), expand(c))
			}
			for _, c := range pf.Range {
				doc.AddRange(expand(p), expand(c))
			}
			for _, s := range pf.SubPropertyOf {
				doc.AddSubPropertyOf(expand(p), expand(s))
			}
		}
	}
	for i, oa := range df.ObjectAssertions {
		if oa.Property == "" || oa.Subject == "" || oa.Object == "" {
			return nil, fmt.Errorf("%w: object assertion %d is incomplete", ErrMalformed, i)
		}
		doc.AddObjectAssertion(ObjectAssertion{Property: expand(oa.Property), Subject: expand(oa.Subject), Object: expand(oa.Object)})
	}
	for i, da := range df.DataAssertions {
		if da.Property == "" || da.Subject == "" {
			return nil, fmt.Errorf("%w: data assertion %d is incomplete", ErrMalformed, i)
		}
		lit, err := literalFromNode(&da.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: data assertion %d: %v", ErrMalformed, i, err)
		}
		doc.AddDataAssertion(DataAssertion{Property: expand(da.Property), Subject: expand(da.Subject), Value: lit})
	}

	logDocument(doc)
	return doc, nil
}

func literalFromNode(n *yaml.Node) (Literal, error) {
	if n.Kind != yaml.ScalarNode {
		return Literal{}, fmt.Errorf("value must be a scalar")
	}
	switch n.Tag {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Literal{}, err
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Literal{}, err
		}
		return IntValue(i), nil
	}
	return StringValue(n.Value), nil
}

func logDocument(doc *Document) {
	logging.OntologyDebug("loaded %s: %d individuals, %d class assertions, %d object assertions, %d data assertions",
		doc.IRI, len(doc.Individuals()), len(doc.classes), len(doc.objects), len(doc.data))
}
