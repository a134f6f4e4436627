package knowledge

import (
	"fmt"
	"strings"

	"hexowl/internal/logging"
)

// SimplifyOrder selects which namespace wins when several IRI bases are a
// prefix of the value being simplified.
type SimplifyOrder string

const (
	// FirstInserted picks the first matching entry in metadata file order.
	FirstInserted SimplifyOrder = "insertion"
	// LongestMatch picks the longest matching IRI base.
	LongestMatch SimplifyOrder = "longest"
)

// ParseSimplifyOrder validates a configured order.
func ParseSimplifyOrder(s string) (SimplifyOrder, error) {
	switch SimplifyOrder(s) {
	case "", FirstInserted:
		return FirstInserted, nil
	case LongestMatch:
		return LongestMatch, nil
	}
	return "", fmt.Errorf("unknown simplify order %q", s)
}

type nsEntry struct {
	prefix string
	iri    string
}

// Namespaces maps prefixes to IRI bases, remembering insertion order.
type Namespaces struct {
	entries []nsEntry
	index   map[string]int
	order   SimplifyOrder
}

// NewNamespaces returns an empty table.
func NewNamespaces(order SimplifyOrder) *Namespaces {
	if order == "" {
		order = FirstInserted
	}
	return &Namespaces{index: make(map[string]int), order: order}
}

// Set adds or replaces a prefix. A replaced prefix keeps its position.
func (n *Namespaces) Set(prefix, iri string) {
	if i, ok := n.index[prefix]; ok {
		n.entries[i].iri = iri
		return
	}
	n.index[prefix] = len(n.entries)
	n.entries = append(n.entries, nsEntry{prefix: prefix, iri: iri})
}

// Lookup returns the IRI base for prefix.
func (n *Namespaces) Lookup(prefix string) (string, bool) {
	i, ok := n.index[prefix]
	if !ok {
		return "", false
	}
	return n.entries[i].iri, true
}

// Len is the number of prefixes.
func (n *Namespaces) Len() int { return len(n.entries) }

// Prefixes returns the prefixes in insertion order.
func (n *Namespaces) Prefixes() []string {
	out := make([]string, len(n.entries))
	for i, e := range n.entries {
		out[i] = e.prefix
	}
	return out
}

// Expand rewrites prefix:suffix to base+suffix. Values without a colon, or
// whose colon is followed by '/', are returned unchanged. An unknown prefix is
// logged and the value passes through.
func (n *Namespaces) Expand(value string) string {
	idx := strings.Index(value, ":")
	if idx == -1 || (idx+1 < len(value) && value[idx+1] == '/') {
		return value
	}
	prefix, suffix := value[:idx], value[idx+1:]
	base, ok := n.Lookup(prefix)
	if !ok {
		logging.Get(logging.CategoryContext).Warn("encountered unknown prefix %s", prefix)
		return value
	}
	logging.ContextDebug("expanded %s to %s", value, base+suffix)
	return base + suffix
}

// Simplify rewrites an IRI to prefix:remainder using the configured order,
// returning value unchanged when no base matches.
func (n *Namespaces) Simplify(value string) string {
	best := -1
	for i, e := range n.entries {
		if !strings.HasPrefix(value, e.iri) {
			continue
		}
		if n.order == FirstInserted {
			best = i
			break
		}
		if best == -1 || len(e.iri) > len(n.entries[best].iri) {
			best = i
		}
	}
	if best == -1 {
		return value
	}
	e := n.entries[best]
	return e.prefix + ":" + value[len(e.iri):]
}
