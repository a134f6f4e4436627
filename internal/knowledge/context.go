// Package knowledge owns the mutable ontology stores the evaluator queries.
// A Context holds one document, its namespace table and a lazily built
// reasoner; a Registry hands out one Context per store location.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"hexowl/internal/logging"
	"hexowl/internal/metrics"
	"hexowl/internal/modification"
	"hexowl/internal/ontology"
	"hexowl/internal/reasoner"
)

var (
	// ErrMetadata marks a malformed or unreadable metadata file.
	ErrMetadata = errors.New("malformed metadata")
	// ErrLoad marks an ontology document that could not be loaded.
	ErrLoad = errors.New("ontology load failed")
	// ErrReasoner marks a reasoner that could not be constructed.
	ErrReasoner = errors.New("reasoner construction failed")
	// ErrClosed is returned by a torn-down context.
	ErrClosed = errors.New("store context closed")
)

// Options configure context construction.
type Options struct {
	Order   SimplifyOrder
	Factory reasoner.Factory
}

func (o Options) factory() reasoner.Factory {
	if o.Factory == nil {
		return reasoner.Structural{}
	}
	return o.Factory
}

// Changes are the edits that actually changed the document during Apply.
// Revert undoes exactly these.
type Changes []modification.Edit

// Context is one loaded store. All methods are safe for concurrent use; at
// most one hypothetical mutation is in flight at a time.
type Context struct {
	location string
	loadURI  string
	ns       *Namespaces
	factory  reasoner.Factory

	mu       sync.Mutex
	doc      *ontology.Document
	reasoner reasoner.Reasoner
	dirty    bool
	closed   bool
}

// Open reads the metadata file at location and loads the document it names.
func Open(location string, opts Options) (*Context, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	meta, err := ReadMetadataFile(abs, opts.Order)
	if err != nil {
		return nil, err
	}
	uri := ResolveURI(meta.LoadURI, filepath.Dir(abs))
	path, err := uriPath(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	doc, err := ontology.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, uri, err)
	}
	logging.Get(logging.CategoryContext).Info("loaded %s from %s (%d namespaces)", abs, uri, meta.Namespaces.Len())
	c := NewContext(abs, doc, meta.Namespaces, opts.Factory)
	c.loadURI = uri
	return c, nil
}

// NewContext wraps an already loaded document.
func NewContext(location string, doc *ontology.Document, ns *Namespaces, factory reasoner.Factory) *Context {
	if ns == nil {
		ns = NewNamespaces(FirstInserted)
	}
	return &Context{
		location: location,
		loadURI:  location,
		ns:       ns,
		factory:  Options{Factory: factory}.factory(),
		doc:      doc,
		dirty:    true,
	}
}

// Location is the absolute metadata path this context was opened from.
func (c *Context) Location() string { return c.location }

// LoadURI is the resolved document URI.
func (c *Context) LoadURI() string { return c.loadURI }

// Namespaces returns the prefix table.
func (c *Context) Namespaces() *Namespaces { return c.ns }

// Expand resolves a prefixed name.
func (c *Context) Expand(value string) string { return c.ns.Expand(value) }

// Simplify shortens an IRI using the prefix table.
func (c *Context) Simplify(value string) string { return c.ns.Simplify(value) }

// Fingerprint returns a canonical dump of the document's assertions.
func (c *Context) Fingerprint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Fingerprint()
}

// Tag names the document's current content: the load URI followed by a
// short digest of the fingerprint. Clauses learned under one tag say nothing
// about the document once it carries another.
func (c *Context) Tag() string {
	sum := sha256.Sum256([]byte(c.Fingerprint()))
	return c.loadURI + "#" + hex.EncodeToString(sum[:8])
}

// Apply validates the whole batch, then applies it in order. Only edits that
// changed the document are returned.
func (c *Context) Apply(edits []modification.Edit) (Changes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(edits)
}

// Revert undoes changes in reverse order.
func (c *Context) Revert(changes Changes) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revertLocked(changes)
}

// Reasoner returns the current snapshot, building it if the document changed
// since the last build. The snapshot is only valid until the next mutation.
func (c *Context) Reasoner() (reasoner.Reasoner, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reasonerLocked()
}

// Read runs fn against the current reasoner while holding the context lock.
func (c *Context) Read(fn func(reasoner.Reasoner) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.reasonerLocked()
	if err != nil {
		return err
	}
	return fn(r)
}

// Hypothetically applies edits, runs fn against the mutated store and reverts
// before returning, on every path. An error from fn takes precedence over a
// revert error, which is attached to it.
func (c *Context) Hypothetically(edits []modification.Edit, fn func(reasoner.Reasoner) error) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changes, err := c.applyLocked(edits)
	if err != nil {
		return err
	}
	defer func() {
		rerr := c.revertLocked(changes)
		switch {
		case rerr == nil:
		case err == nil:
			err = rerr
		default:
			err = fmt.Errorf("%w (revert also failed: %v)", err, rerr)
		}
	}()

	r, err := c.reasonerLocked()
	if err != nil {
		return err
	}
	return fn(r)
}

// Teardown disposes the reasoner. The context is unusable afterwards.
func (c *Context) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.invalidateLocked()
	c.closed = true
	logging.ContextDebug("tore down %s", c.location)
}

func (c *Context) applyLocked(edits []modification.Edit) (Changes, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if err := modification.ValidateAll(edits); err != nil {
		return nil, err
	}
	changes := make(Changes, 0, len(edits))
	for _, e := range edits {
		if e.Apply(c.doc) {
			changes = append(changes, e)
			metrics.AddEdits(string(e.Kind()), 1)
			logging.Audit().EditApplied(c.location, string(e.Kind()), e.String(), false)
		} else {
			logging.ContextDebug("edit %s was a no-op", e)
		}
	}
	if len(changes) > 0 {
		c.invalidateLocked()
	}
	logging.ContextDebug("applied %d/%d edits to %s", len(changes), len(edits), c.location)
	return changes, nil
}

func (c *Context) revertLocked(changes Changes) error {
	if c.closed {
		return ErrClosed
	}
	var failed []string
	for i := len(changes) - 1; i >= 0; i-- {
		inv := changes[i].Inverse()
		if !inv.Apply(c.doc) {
			failed = append(failed, inv.String())
			continue
		}
		logging.Audit().EditApplied(c.location, string(changes[i].Kind()), changes[i].String(), true)
	}
	if len(changes) > 0 {
		c.invalidateLocked()
	}
	if len(failed) > 0 {
		return fmt.Errorf("revert of %s left %d edits unapplied: %v", c.location, len(failed), failed)
	}
	return nil
}

func (c *Context) reasonerLocked() (reasoner.Reasoner, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !c.dirty && c.reasoner != nil {
		return c.reasoner, nil
	}
	start := time.Now()
	r, err := c.factory.New(c.doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReasoner, c.location, err)
	}
	metrics.ObserveReasonerBuild(time.Since(start))
	c.reasoner = r
	c.dirty = false
	return r, nil
}

func (c *Context) invalidateLocked() {
	if c.reasoner != nil {
		c.reasoner.Dispose()
		c.reasoner = nil
	}
	c.dirty = true
}
