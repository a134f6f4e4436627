package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hexowl/internal/atoms"
	"hexowl/internal/knowledge"
	"hexowl/internal/ontology"
	"hexowl/internal/reasoner"
	"hexowl/internal/solver"
	"hexowl/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const ex = "http://ex.org/#"

var location = solver.Quoted("store.json")

// a is a C; C and E are disjoint.
func fixture() *ontology.Document {
	doc := ontology.NewDocument("http://ex.org/")
	doc.AddDisjointClasses(ex+"C", ex+"E")
	doc.AddClassAssertion(ontology.ClassAssertion{Class: ex + "C", Individual: ex + "a"})
	return doc
}

func newHost(t *testing.T, factory reasoner.Factory, journal store.NogoodStore, opts Options) *Host {
	t.Helper()
	return newHostOn(t, fixture(), factory, journal, opts)
}

// newHostOn serves doc at every location and tags clauses by its content.
func newHostOn(t *testing.T, doc *ontology.Document, factory reasoner.Factory, journal store.NogoodStore, opts Options) *Host {
	t.Helper()
	ns := knowledge.NewNamespaces(knowledge.FirstInserted)
	ns.Set("ex", ex)
	reg := knowledge.NewRegistryWith(func(loc string) (*knowledge.Context, error) {
		return knowledge.NewContext(loc, doc, ns, factory), nil
	})
	t.Cleanup(reg.Close)
	if opts.Tag == nil {
		opts.Tag = reg.Tag
	}

	cat := atoms.Standard(reg, atoms.Options{Learn: true, IncludeCurrent: true})
	h, err := New(cat, journal, opts)
	require.NoError(t, err)
	return h
}

func mutationInputs(extra ...solver.Symbol) []solver.Symbol {
	return append([]solver.Symbol{location, solver.Constant("delta"), solver.Constant("s1")}, extra...)
}

func TestConversionRoundTrip(t *testing.T) {
	in := []solver.Symbol{
		solver.Constant("s1"),
		solver.Quoted("ex:C"),
		solver.Int(42),
		solver.MustParseSymbol("addc(ex:C,ex:b)"),
	}
	out := normalize(in)
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "%s came back as %s", in[i], out[i])
	}

	a := solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("addc(ex:C,ex:b)"))
	back, err := fromAtom(toAtom(a))
	require.NoError(t, err)
	assert.Equal(t, a.Key(), back.Key())
}

func TestEvaluateFeedsRules(t *testing.T) {
	h := newHost(t, nil, nil, Options{})
	require.NoError(t, h.LoadProgram(`
delta(/s1, "addc(ex:C,ex:b)").
member(X) :- ext_dl_c_m("store.json", /delta, /s1, "ex:C", X).
`))

	assert.Equal(t, solver.True, h.Truth(solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("addc(ex:C,ex:b)"))))
	assert.Empty(t, h.Facts("member"))

	ans, err := h.Evaluate("dl_c_m", mutationInputs(solver.Quoted("ex:C")))
	require.NoError(t, err)
	require.Len(t, ans.Tuples, 2)

	var members []string
	for _, m := range h.Facts("member") {
		members = append(members, m.Args[0].Unquoted())
	}
	assert.ElementsMatch(t, []string{ex + "a", ex + "b"}, members)

	// The hypothetical individual is gone from the base store.
	plain, err := h.Evaluate("dl_c", []solver.Symbol{location, solver.Quoted("ex:C")})
	require.NoError(t, err)
	require.Len(t, plain.Tuples, 1)
	assert.Equal(t, ex+"a", plain.Tuples[0][0].Unquoted())
}

func TestRefutedAtomsAreFalse(t *testing.T) {
	h := newHost(t, nil, nil, Options{})
	require.NoError(t, h.LoadProgram(`delta(/s1, "addc(ex:C,ex:b)").`))

	refuted := solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("addc(ex:E,ex:a)"))
	unknown := solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("addc(ex:E,ex:b)"))
	h.Refute(refuted)

	assert.Equal(t, solver.False, h.Truth(refuted))
	assert.Equal(t, solver.Unknown, h.Truth(unknown))

	assigned := h.Atoms("delta")
	require.Len(t, assigned, 2)
	truths := map[solver.Truth]int{}
	for _, aa := range assigned {
		truths[aa.Truth]++
	}
	assert.Equal(t, map[solver.Truth]int{solver.True: 1, solver.False: 1}, truths)

	require.NoError(t, h.Assert(refuted))
	assert.Equal(t, solver.True, h.Truth(refuted))
}

func TestNogoodReuseSkipsReasoner(t *testing.T) {
	counting := reasoner.NewCounting(reasoner.Structural{})
	journal := store.NewMemoryStore()
	h := newHost(t, counting, journal, Options{ReuseNogoods: true})
	program := `delta(/s1, "addc(ex:E,ex:a)").`
	require.NoError(t, h.LoadProgram(program))

	first, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, first.True())
	assert.Equal(t, int64(1), counting.ConsistencyChecks())
	require.Len(t, h.Nogoods(), 1)

	n, err := journal.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, second.True())
	assert.Equal(t, int64(1), counting.ConsistencyChecks())

	// A fresh host picks the clause up from the journal.
	again := newHost(t, counting, journal, Options{ReuseNogoods: true})
	require.NoError(t, again.LoadProgram(program))
	third, err := again.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, third.True())
	assert.Equal(t, int64(1), counting.ConsistencyChecks())
}

func TestReuseIgnoresClauseAfterNewDeltaAtom(t *testing.T) {
	counting := reasoner.NewCounting(reasoner.Structural{})
	h := newHost(t, counting, nil, Options{ReuseNogoods: true})
	require.NoError(t, h.LoadProgram(`delta(/s1, "addc(ex:E,ex:a)").`))

	first, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, first.True())
	require.Len(t, h.Nogoods(), 1)

	// Removing a from C lifts the clash, so the clause learned from the
	// smaller scenario no longer decides the atom.
	require.NoError(t, h.Assert(solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("delc(ex:C,ex:a)"))))
	second, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.True(t, second.True())
	assert.Equal(t, int64(2), counting.ConsistencyChecks())
	assert.Equal(t, solver.True, h.Truth(h.OutputAtom("dl_consistent", mutationInputs(), nil)))
}

func TestJournalIgnoredForEditedDocument(t *testing.T) {
	counting := reasoner.NewCounting(reasoner.Structural{})
	journal := store.NewMemoryStore()
	program := `delta(/s1, "addc(ex:E,ex:a)").`

	h := newHost(t, counting, journal, Options{ReuseNogoods: true})
	require.NoError(t, h.LoadProgram(program))
	first, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, first.True())

	// Same location, but C and E are no longer disjoint.
	edited := ontology.NewDocument("http://ex.org/")
	edited.AddClassAssertion(ontology.ClassAssertion{Class: ex + "C", Individual: ex + "a"})
	again := newHostOn(t, edited, counting, journal, Options{ReuseNogoods: true})
	require.NoError(t, again.LoadProgram(program))
	second, err := again.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.True(t, second.True())
	assert.Equal(t, int64(2), counting.ConsistencyChecks())

	n, err := journal.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStaleOutputsAreRetracted(t *testing.T) {
	h := newHost(t, nil, nil, Options{})
	require.NoError(t, h.LoadProgram(`
delta(/s1, "addc(ex:C,ex:b)").
ok(/yes) :- ext_dl_consistent("store.json", /delta, /s1).
`))
	out := h.OutputAtom("dl_consistent", mutationInputs(), nil)

	first, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.True(t, first.True())
	assert.Equal(t, solver.True, h.Truth(out))
	assert.Len(t, h.Facts("ok"), 1)

	require.NoError(t, h.Assert(solver.NewAtom("delta", solver.Constant("s1"), solver.MustParseSymbol("addc(ex:E,ex:b)"))))
	second, err := h.Evaluate("dl_consistent", mutationInputs())
	require.NoError(t, err)
	assert.False(t, second.True())
	assert.NotEqual(t, solver.True, h.Truth(out))
	assert.Empty(t, h.Facts("ok"))

	// Asserted and program facts survive the rebuild.
	assert.Len(t, h.Facts("delta"), 2)
}

func TestNogoodReuseDisabled(t *testing.T) {
	counting := reasoner.NewCounting(reasoner.Structural{})
	h := newHost(t, counting, nil, Options{})
	require.NoError(t, h.LoadProgram(`delta(/s1, "addc(ex:E,ex:a)").`))

	for i := 0; i < 2; i++ {
		_, err := h.Evaluate("dl_consistent", mutationInputs())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), counting.ConsistencyChecks())
}

func TestEvaluateAll(t *testing.T) {
	h := newHost(t, nil, nil, Options{Parallelism: 2})
	require.NoError(t, h.LoadProgram(`
delta(/s1, "addc(ex:C,ex:b)").
ok(/yes) :- ext_dl_consistent("store.json", /delta, /s1).
`))

	calls := []solver.Instance{
		{Predicate: "dl_consistent", Inputs: mutationInputs()},
		{Predicate: "dl_c", Inputs: []solver.Symbol{location, solver.Quoted("ex:C")}},
	}
	answers, err := h.EvaluateAll(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.True(t, answers[0].True())
	assert.Len(t, answers[1].Tuples, 1)
	assert.Len(t, h.Facts("ok"), 1)

	_, err = h.EvaluateAll(context.Background(), []solver.Instance{{Predicate: "dl_nope"}})
	assert.ErrorIs(t, err, atoms.ErrUnknownAtom)
}

func TestEvaluateWithoutProgram(t *testing.T) {
	h := newHost(t, nil, nil, Options{})
	_, err := h.Evaluate("dl_c", []solver.Symbol{location, solver.Quoted("ex:C")})
	assert.ErrorIs(t, err, ErrNoProgram)
}
