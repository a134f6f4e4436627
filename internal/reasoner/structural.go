package reasoner

import (
	"sort"

	"hexowl/internal/logging"
	"hexowl/internal/ontology"
)

// Structural is a told-axiom reasoner: it closes the class and property
// hierarchies, types individuals through property domains and ranges, and
// reports inconsistency when an individual falls into owl:Nothing or into
// two disjoint classes. It does no tableau search.
type Structural struct{}

// New implements Factory. All inferences are computed eagerly.
func (Structural) New(doc *ontology.Document) (Reasoner, error) {
	timer := logging.StartTimer(logging.CategoryReasoner, "structural.build")
	defer timer.Stop()

	s := &snapshot{
		doc:        doc,
		superCache: make(map[string][]string),
		propCache:  make(map[string][]string),
		types:      make(map[string]map[string]bool),
		objects:    make(map[[2]string][]string),
		data:       make(map[[2]string][]ontology.Literal),
	}
	s.precompute()
	logging.ReasonerDebug("built snapshot of %s: %d typed individuals, consistent=%v", doc.IRI, len(s.types), s.consistent)
	return s, nil
}

type snapshot struct {
	doc        *ontology.Document
	superCache map[string][]string
	propCache  map[string][]string

	individuals []string
	types       map[string]map[string]bool
	objects     map[[2]string][]string
	data        map[[2]string][]ontology.Literal
	consistent  bool
	disposed    bool
}

func (s *snapshot) precompute() {
	s.individuals = s.doc.Individuals()
	for _, ind := range s.individuals {
		s.addType(ind, ontology.Thing)
	}
	for _, ca := range s.doc.ClassAssertions() {
		s.addType(ca.Individual, ca.Class)
	}
	for _, oa := range s.doc.ObjectAssertions() {
		for _, p := range s.propertyClosure(oa.Property) {
			key := [2]string{oa.Subject, p}
			s.objects[key] = appendString(s.objects[key], oa.Object)
			for _, c := range s.doc.Domains(p) {
				s.addType(oa.Subject, c)
			}
			for _, c := range s.doc.Ranges(p) {
				s.addType(oa.Object, c)
			}
		}
	}
	for _, da := range s.doc.DataAssertions() {
		for _, p := range s.propertyClosure(da.Property) {
			key := [2]string{da.Subject, p}
			s.data[key] = appendLiteral(s.data[key], da.Value)
			for _, c := range s.doc.Domains(p) {
				s.addType(da.Subject, c)
			}
		}
	}

	s.consistent = true
	disjoint := s.doc.DisjointPairs()
	for ind, types := range s.types {
		if types[ontology.Nothing] {
			logging.ReasonerDebug("%s is an instance of owl:Nothing", ind)
			s.consistent = false
			return
		}
		for _, pair := range disjoint {
			if types[pair[0]] && types[pair[1]] {
				logging.ReasonerDebug("%s is an instance of disjoint classes %s and %s", ind, pair[0], pair[1])
				s.consistent = false
				return
			}
		}
	}
}

func (s *snapshot) addType(ind, class string) {
	set := s.types[ind]
	if set == nil {
		set = make(map[string]bool)
		s.types[ind] = set
	}
	for _, c := range s.superClosure(class) {
		set[c] = true
	}
}

// superClosure returns class and all its told superclasses.
func (s *snapshot) superClosure(class string) []string {
	if cached, ok := s.superCache[class]; ok {
		return cached
	}
	out := closure(class, s.doc.SuperClasses)
	s.superCache[class] = out
	return out
}

func (s *snapshot) propertyClosure(property string) []string {
	if cached, ok := s.propCache[property]; ok {
		return cached
	}
	out := closure(property, s.doc.SuperProperties)
	s.propCache[property] = out
	return out
}

func closure(start string, next func(string) []string) []string {
	seen := map[string]bool{start: true}
	out := []string{start}
	for i := 0; i < len(out); i++ {
		for _, n := range next(out[i]) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func (s *snapshot) IsConsistent() bool {
	return s.consistent
}

func (s *snapshot) Instances(class string) ([]string, error) {
	if !s.consistent {
		return nil, ErrInconsistent
	}
	var out []string
	for _, ind := range s.individuals {
		if s.types[ind][class] {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (s *snapshot) ObjectValues(subject, property string) ([]string, error) {
	if !s.consistent {
		return nil, ErrInconsistent
	}
	vals := append([]string(nil), s.objects[[2]string{subject, property}]...)
	sort.Strings(vals)
	return vals, nil
}

func (s *snapshot) DataValues(subject, property string) ([]ontology.Literal, error) {
	if !s.consistent {
		return nil, ErrInconsistent
	}
	vals := append([]ontology.Literal(nil), s.data[[2]string{subject, property}]...)
	sort.Slice(vals, func(i, j int) bool { return vals[i].String() < vals[j].String() })
	return vals, nil
}

func (s *snapshot) Domains(property string) []string {
	domains := s.doc.Domains(property)
	if len(domains) == 0 {
		return []string{ontology.Thing}
	}
	return domains
}

func (s *snapshot) Dispose() {
	s.disposed = true
	s.types = nil
	s.objects = nil
	s.data = nil
}

func appendString(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func appendLiteral(list []ontology.Literal, v ontology.Literal) []ontology.Literal {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
