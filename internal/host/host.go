// Package host is a small solver runtime built on Google Mangle. It keeps a
// three-valued assignment (facts derived by the loaded program are true,
// refuted atoms are false, the rest unknown), evaluates external atoms
// through the catalogue, stores their outputs as ext_<atom> facts and keeps
// the learned conflict clauses, reusing them to skip repeated evaluations.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"golang.org/x/sync/errgroup"

	"hexowl/internal/atoms"
	"hexowl/internal/logging"
	"hexowl/internal/metrics"
	"hexowl/internal/scenario"
	"hexowl/internal/solver"
	"hexowl/internal/store"
)

// ErrNoProgram is returned when evaluation is requested before LoadProgram.
var ErrNoProgram = errors.New("no program loaded")

// Options configure a Host.
type Options struct {
	// FactLimit bounds the facts created by one rule evaluation; 0 is unlimited.
	FactLimit int
	// ReuseNogoods decides zero-output atoms from learned clauses when possible.
	ReuseNogoods bool
	// Parallelism bounds EvaluateAll; 0 means one worker per call.
	Parallelism int
	// Tag names the content of the store at location. Learned clauses are
	// journaled under it and only reused while the store carries the same
	// tag. Nil tags clauses by location alone.
	Tag func(location string) (string, error)
}

// Host implements solver.Context on top of a Mangle fact store.
type Host struct {
	opts      Options
	catalogue *atoms.Catalogue
	journal   store.NogoodStore

	mu          sync.RWMutex
	baseStore   factstore.FactStoreWithRemove
	store       factstore.ConcurrentFactStore
	programInfo *analysis.ProgramInfo
	asserted    []ast.Atom
	outputs     map[string][]ast.Atom // keyed by grounding
	refuted     map[string]solver.Atom
	instances   map[string][]solver.Instance
	nogoods     []solver.Nogood
	nogoodTags  []string
	nogoodKeys  map[string]bool
	byOutput    map[string][]int
	journaled   map[string]bool
}

// New returns a host evaluating external atoms through catalogue. Journaled
// clauses are loaded per store tag the first time a store is evaluated; new
// ones are appended to the journal.
func New(catalogue *atoms.Catalogue, journal store.NogoodStore, opts Options) (*Host, error) {
	if journal == nil {
		journal = store.NewMemoryStore()
	}
	baseStore := factstore.NewSimpleInMemoryStore()
	h := &Host{
		opts:       opts,
		catalogue:  catalogue,
		journal:    journal,
		baseStore:  baseStore,
		store:      factstore.NewConcurrentFactStore(baseStore),
		outputs:    make(map[string][]ast.Atom),
		refuted:    make(map[string]solver.Atom),
		instances:  make(map[string][]solver.Instance),
		nogoodKeys: make(map[string]bool),
		byOutput:   make(map[string][]int),
		journaled:  make(map[string]bool),
	}
	return h, nil
}

// tagFor returns the journal tag of the store at location.
func (h *Host) tagFor(location solver.Symbol) (string, error) {
	if h.opts.Tag == nil {
		return location.Unquoted(), nil
	}
	return h.opts.Tag(location.Unquoted())
}

// loadJournal reads the clauses journaled under tag once per host.
func (h *Host) loadJournal(tag string) error {
	h.mu.RLock()
	done := h.journaled[tag]
	h.mu.RUnlock()
	if done {
		return nil
	}
	known, err := h.journal.All(tag)
	if err != nil {
		return fmt.Errorf("failed to load nogood journal: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.journaled[tag] {
		return nil
	}
	h.journaled[tag] = true
	for _, ng := range known {
		h.addNogoodLocked(tag, ng)
	}
	if len(known) > 0 {
		logging.Host("loaded %d journaled nogoods for %s", len(known), tag)
	}
	return nil
}

// LoadProgramFile reads and loads a Mangle program.
func (h *Host) LoadProgramFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read program %s: %w", path, err)
	}
	return h.LoadProgram(string(data))
}

// LoadProgram parses and analyzes a Mangle program. Declarations for the
// output predicates of every catalogue atom are added unless the program
// declares them itself.
func (h *Host) LoadProgram(src string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(src)))
	if err != nil {
		return fmt.Errorf("failed to parse program: %w", err)
	}
	decls, err := h.outputDecls(unit)
	if err != nil {
		return err
	}
	unit.Decls = append(unit.Decls, decls...)

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("failed to analyze program: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.programInfo != nil {
		h.resetStoreLocked()
	}
	h.programInfo = programInfo
	logging.Host("loaded program: %d rules, %d decls", len(programInfo.Rules), len(programInfo.Decls))
	return h.evalLocked()
}

// outputDecls builds "Decl ext_<atom>(...)." for catalogue atoms the program
// does not declare.
func (h *Host) outputDecls(unit parse.SourceUnit) ([]ast.Decl, error) {
	declared := make(map[string]bool, len(unit.Decls))
	for _, d := range unit.Decls {
		declared[d.DeclaredAtom.Predicate.Symbol] = true
	}
	var src strings.Builder
	for _, name := range h.catalogue.Names() {
		a, _ := h.catalogue.Lookup(name)
		out := solver.OutputAtomFor(name, nil, nil).Predicate
		if declared[out] {
			continue
		}
		arity := len(a.Inputs()) + a.OutputArity()
		vars := make([]string, arity)
		for i := range vars {
			vars[i] = fmt.Sprintf("A%d", i)
		}
		fmt.Fprintf(&src, "Decl %s(%s).\n", out, strings.Join(vars, ", "))
	}
	if src.Len() == 0 {
		return nil, nil
	}
	gen, err := parse.Unit(strings.NewReader(src.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to declare output predicates: %w", err)
	}
	return gen.Decls, nil
}

// resetStoreLocked drops the facts derived by the previous program, keeping
// asserted facts and external outputs.
func (h *Host) resetStoreLocked() {
	h.baseStore = factstore.NewSimpleInMemoryStore()
	h.store = factstore.NewConcurrentFactStore(h.baseStore)
	for _, f := range h.asserted {
		h.store.Add(f)
	}
	kept := 0
	for _, facts := range h.outputs {
		for _, f := range facts {
			h.store.Add(f)
		}
		kept += len(facts)
	}
	logging.HostDebug("fact store reset: %d asserted, %d outputs kept", len(h.asserted), kept)
}

// recordOutputsLocked replaces the ext_ facts of one grounding with the
// tuples of ans. Dropping a fact also drops everything derived from it, so
// the store is rebuilt and the program re-evaluated.
func (h *Host) recordOutputsLocked(predicate string, inputs []solver.Symbol, ans *atoms.Answer) error {
	key := predicate + solver.TupleKey(inputs)
	fresh := make([]ast.Atom, 0, len(ans.Tuples))
	current := make(map[string]bool, len(ans.Tuples))
	for _, tuple := range ans.Tuples {
		out := h.OutputAtom(predicate, inputs, tuple)
		current[out.Key()] = true
		fresh = append(fresh, toAtom(out))
	}

	stale := 0
	for _, old := range h.outputs[key] {
		a, err := fromAtom(old)
		if err != nil || !current[a.Key()] {
			stale++
		}
	}
	if len(fresh) == 0 {
		delete(h.outputs, key)
	} else {
		h.outputs[key] = fresh
	}

	if stale == 0 {
		for _, f := range fresh {
			h.store.Add(f)
		}
		return nil
	}
	logging.HostDebug("&%s%s: retracting %d stale outputs", predicate, solver.TupleKey(inputs), stale)
	h.resetStoreLocked()
	if h.programInfo == nil {
		return nil
	}
	return h.evalLocked()
}

// evalLocked brings the derived facts up to date.
func (h *Host) evalLocked() error {
	if h.programInfo == nil {
		return ErrNoProgram
	}
	limit := h.opts.FactLimit
	if limit <= 0 {
		limit = math.MaxInt32
	}
	stats, err := mengine.EvalProgramWithStats(h.programInfo, h.store, mengine.WithCreatedFactLimit(limit))
	if err != nil {
		return fmt.Errorf("rule evaluation failed: %w", err)
	}
	logging.HostDebug("evaluated program: %+v, ~%d facts", stats, h.store.EstimateFactCount())
	return nil
}

// Assert makes a true.
func (h *Host) Assert(a solver.Atom) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	fact := toAtom(a)
	delete(h.refuted, a.Key())
	if h.store.Add(fact) {
		h.asserted = append(h.asserted, fact)
	}
	if h.programInfo == nil {
		return nil
	}
	return h.evalLocked()
}

// Refute makes a false. Atoms derived by the program stay true.
func (h *Host) Refute(a solver.Atom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refuted[a.Key()] = solver.NewAtom(a.Predicate, normalize(a.Args)...)
}

// Call registers an external atom grounding so clause learning can consider
// it. Inputs are normalized through the fact-store mapping.
func (h *Host) Call(predicate string, inputs ...solver.Symbol) solver.Instance {
	inst := solver.Instance{Predicate: predicate, Inputs: normalize(inputs)}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, known := range h.instances[predicate] {
		if solver.SameSymbols(known.Inputs, inst.Inputs) {
			return known
		}
	}
	h.instances[predicate] = append(h.instances[predicate], inst)
	return inst
}

// Evaluate runs one external atom against the current assignment, records
// its outputs as facts and re-evaluates the program.
func (h *Host) Evaluate(predicate string, inputs []solver.Symbol) (*atoms.Answer, error) {
	ans, err := h.evaluate(predicate, inputs)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return ans, h.evalLocked()
}

// EvaluateAll evaluates calls concurrently and re-evaluates the program once.
// Answers are returned in call order.
func (h *Host) EvaluateAll(ctx context.Context, calls []solver.Instance) ([]*atoms.Answer, error) {
	for _, c := range calls {
		h.Call(c.Predicate, c.Inputs...)
	}
	answers := make([]*atoms.Answer, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	if h.opts.Parallelism > 0 {
		g.SetLimit(h.opts.Parallelism)
	}
	for i, c := range calls {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ans, err := h.evaluate(c.Predicate, c.Inputs)
			if err != nil {
				return fmt.Errorf("&%s%s: %w", c.Predicate, solver.TupleKey(c.Inputs), err)
			}
			answers[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return answers, h.evalLocked()
}

func (h *Host) evaluate(predicate string, inputs []solver.Symbol) (*atoms.Answer, error) {
	a, ok := h.catalogue.Lookup(predicate)
	if !ok {
		return nil, fmt.Errorf("%w: %s", atoms.ErrUnknownAtom, predicate)
	}
	inst := h.Call(predicate, inputs...)

	var ans *atoms.Answer
	if h.opts.ReuseNogoods && a.OutputArity() == 0 && len(inst.Inputs) >= 3 {
		ans = h.decideFromNogoods(inst)
	}
	if ans == nil {
		var err error
		if ans, err = h.catalogue.Evaluate(h, predicate, inst.Inputs); err != nil {
			return nil, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.recordOutputsLocked(predicate, inst.Inputs, ans); err != nil {
		return nil, err
	}
	return ans, nil
}

// decideFromNogoods looks for a learned clause on the output atom, recorded
// under the store's current tag, whose other literals all hold and whose
// positive literals cover every true delta atom of the selector. Such a
// clause was learned from the same scenario and fixes the output atom's
// value. It returns nil when no clause applies.
func (h *Host) decideFromNogoods(inst solver.Instance) *atoms.Answer {
	start := time.Now()
	tag, err := h.tagFor(inst.Inputs[0])
	if err != nil {
		logging.HostDebug("&%s: no store tag, skipping learned nogoods: %v", inst.Predicate, err)
		return nil
	}
	if err := h.loadJournal(tag); err != nil {
		logging.Get(logging.CategoryHost).Warn("%v", err)
	}
	out := h.OutputAtom(inst.Predicate, inst.Inputs, nil)

	h.mu.RLock()
	candidates := make([]solver.Nogood, 0, len(h.byOutput[out.Key()]))
	for _, i := range h.byOutput[out.Key()] {
		if h.nogoodTags[i] == tag {
			candidates = append(candidates, h.nogoods[i])
		}
	}
	h.mu.RUnlock()
	if len(candidates) == 0 {
		return nil
	}

	var active []solver.Atom
	for _, aa := range scenario.Relevant(h, inst.Inputs[1].Unquoted(), inst.Inputs[2]) {
		if aa.Truth == solver.True {
			active = append(active, aa.Atom)
		}
	}

	for _, ng := range candidates {
		var outLit solver.Literal
		holds := true
		positive := make(map[string]bool, len(ng))
		for _, l := range ng {
			if l.Atom.Key() == out.Key() {
				outLit = l
				continue
			}
			if l.Positive {
				positive[l.Atom.Key()] = true
			}
			if !l.HoldsUnder(h.Truth(l.Atom)) {
				holds = false
				break
			}
		}
		for _, a := range active {
			if !holds {
				break
			}
			holds = positive[a.Key()]
		}
		if !holds {
			continue
		}
		ans := &atoms.Answer{}
		// The clause forbids outLit, so the output takes the other value.
		if !outLit.Positive {
			ans.Add()
		}
		logging.Host("&%s%s decided by learned nogood %s", inst.Predicate, solver.TupleKey(inst.Inputs), ng)
		metrics.ObserveEvaluation(inst.Predicate, metrics.OutcomeReused, time.Since(start))
		return ans
	}
	return nil
}

// Atoms implements solver.Assignment.
func (h *Host) Atoms(predicate string) []solver.AssignedAtom {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var out []solver.AssignedAtom
	for _, sym := range h.store.ListPredicates() {
		if sym.Symbol != predicate {
			continue
		}
		_ = h.store.GetFacts(ast.NewQuery(sym), func(fact ast.Atom) error {
			a, err := fromAtom(fact)
			if err != nil {
				logging.Get(logging.CategoryHost).Warn("skipping fact: %v", err)
				return nil
			}
			if _, refuted := h.refuted[a.Key()]; refuted {
				logging.Get(logging.CategoryHost).Warn("%s is both derived and refuted, treating as true", a)
			}
			seen[a.Key()] = true
			out = append(out, solver.AssignedAtom{Atom: a, Truth: solver.True})
			return nil
		})
	}
	for k, a := range h.refuted {
		if a.Predicate == predicate && !seen[k] {
			out = append(out, solver.AssignedAtom{Atom: a, Truth: solver.False})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Atom.Key() < out[j].Atom.Key() })
	return out
}

// Truth implements solver.Assignment.
func (h *Host) Truth(a solver.Atom) solver.Truth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	found := false
	_ = h.store.GetFacts(toAtom(a), func(ast.Atom) error {
		found = true
		return nil
	})
	if found {
		return solver.True
	}
	if _, ok := h.refuted[solver.NewAtom(a.Predicate, normalize(a.Args)...).Key()]; ok {
		return solver.False
	}
	if _, ok := h.refuted[a.Key()]; ok {
		return solver.False
	}
	return solver.Unknown
}

// Instances implements solver.Context.
func (h *Host) Instances(predicate string) []solver.Instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]solver.Instance(nil), h.instances[predicate]...)
}

// OutputAtom implements solver.Context.
func (h *Host) OutputAtom(predicate string, inputs []solver.Symbol, tuple []solver.Symbol) solver.Atom {
	return solver.OutputAtomFor(predicate, normalize(inputs), normalize(tuple))
}

// OutputTuples implements solver.Context: the tuples of every ext_ fact
// stored for this grounding.
func (h *Host) OutputTuples(predicate string, inputs []solver.Symbol) [][]solver.Symbol {
	inputs = normalize(inputs)
	name := h.OutputAtom(predicate, nil, nil).Predicate
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out [][]solver.Symbol
	for _, sym := range h.store.ListPredicates() {
		if sym.Symbol != name || sym.Arity < len(inputs) {
			continue
		}
		_ = h.store.GetFacts(ast.NewQuery(sym), func(fact ast.Atom) error {
			a, err := fromAtom(fact)
			if err != nil || !solver.SameSymbols(a.Args[:len(inputs)], inputs) {
				return nil
			}
			out = append(out, a.Args[len(inputs):])
			return nil
		})
	}
	return out
}

// Learn implements solver.Context. The clause is tagged with the store named
// by its output literal.
func (h *Host) Learn(ng solver.Nogood) {
	norm := ng.Normalize()
	location, ok := learnedAt(norm)
	if !ok {
		logging.Get(logging.CategoryHost).Warn("dropping nogood without output literal: %s", norm)
		return
	}
	tag, err := h.tagFor(location)
	if err != nil {
		logging.Get(logging.CategoryHost).Error("failed to tag nogood %s: %v", norm, err)
		return
	}
	h.mu.Lock()
	added := h.addNogoodLocked(tag, norm)
	h.mu.Unlock()
	if !added {
		return
	}
	if _, err := h.journal.Append(tag, norm); err != nil {
		logging.Get(logging.CategoryHost).Error("failed to journal nogood %s: %v", norm, err)
	}
}

// learnedAt returns the store location of the clause's output literal.
func learnedAt(ng solver.Nogood) (solver.Symbol, bool) {
	for _, l := range ng {
		if strings.HasPrefix(l.Atom.Predicate, "ext_") && len(l.Atom.Args) > 0 {
			return l.Atom.Args[0], true
		}
	}
	return solver.Symbol{}, false
}

func (h *Host) addNogoodLocked(tag string, ng solver.Nogood) bool {
	k := tag + "\x00" + ng.Key()
	if h.nogoodKeys[k] {
		return false
	}
	h.nogoodKeys[k] = true
	idx := len(h.nogoods)
	h.nogoods = append(h.nogoods, ng)
	h.nogoodTags = append(h.nogoodTags, tag)
	for _, l := range ng {
		if strings.HasPrefix(l.Atom.Predicate, "ext_") {
			h.byOutput[l.Atom.Key()] = append(h.byOutput[l.Atom.Key()], idx)
		}
	}
	return true
}

// Nogoods returns the learned clauses.
func (h *Host) Nogoods() []solver.Nogood {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]solver.Nogood(nil), h.nogoods...)
}

// Facts returns the true atoms of predicate.
func (h *Host) Facts(predicate string) []solver.Atom {
	var out []solver.Atom
	for _, aa := range h.Atoms(predicate) {
		if aa.Truth == solver.True {
			out = append(out, aa.Atom)
		}
	}
	return out
}

// Close releases the journal.
func (h *Host) Close() error {
	return h.journal.Close()
}
