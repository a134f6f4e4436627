// Package store journals learned conflict clauses so a host can reload them
// across runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"hexowl/internal/logging"
	"hexowl/internal/solver"
)

// ErrCorrupt is returned for journal rows that no longer decode.
var ErrCorrupt = errors.New("corrupt nogood record")

// NogoodStore persists conflict clauses. Every clause carries a tag naming
// the program and ontology it was learned against; a clause is identified by
// its tag and normalized key, and appending a known clause is a no-op.
type NogoodStore interface {
	// Append records ng under tag and reports whether it was new.
	Append(tag string, ng solver.Nogood) (bool, error)
	// All returns the clauses recorded under tag in insertion order. An
	// empty tag returns every clause.
	All(tag string) ([]solver.Nogood, error)
	Len() (int, error)
	Close() error
}

// Open returns the journal for backend ("memory" or "sqlite").
func Open(backend, path string) (NogoodStore, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown nogood store backend %q", backend)
}

// MemoryStore keeps clauses for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	keys    map[string]bool
	tags    []string
	nogoods []solver.Nogood
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]bool)}
}

func (m *MemoryStore) Append(tag string, ng solver.Nogood) (bool, error) {
	norm := ng.Normalize()
	k := tag + "\x00" + norm.Key()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[k] {
		return false, nil
	}
	m.keys[k] = true
	m.tags = append(m.tags, tag)
	m.nogoods = append(m.nogoods, norm)
	logging.StoreDebug("journaled %s under %s", norm.Key(), tag)
	return true, nil
}

func (m *MemoryStore) All(tag string) ([]solver.Nogood, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []solver.Nogood
	for i, ng := range m.nogoods {
		if tag == "" || m.tags[i] == tag {
			out = append(out, ng)
		}
	}
	return out, nil
}

func (m *MemoryStore) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nogoods), nil
}

func (m *MemoryStore) Close() error { return nil }

// EncodeNogood renders a clause as a JSON array of literal texts.
func EncodeNogood(ng solver.Nogood) (string, error) {
	lits := make([]string, len(ng))
	for i, l := range ng {
		lits[i] = l.String()
	}
	data, err := json.Marshal(lits)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeNogood parses the output of EncodeNogood.
func DecodeNogood(text string) (solver.Nogood, error) {
	var lits []string
	if err := json.Unmarshal([]byte(text), &lits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	ng := make(solver.Nogood, 0, len(lits))
	for _, lit := range lits {
		positive := !strings.HasPrefix(lit, "-")
		sym, err := solver.ParseSymbol(strings.TrimPrefix(lit, "-"))
		if err != nil {
			return nil, fmt.Errorf("%w: literal %q: %v", ErrCorrupt, lit, err)
		}
		ng = append(ng, solver.Literal{Atom: solver.NewAtom(sym.Name(), sym.Args()...), Positive: positive})
	}
	return ng, nil
}
