package learning

import (
	"testing"

	"hexowl/internal/scenario"
	"hexowl/internal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	loc   = solver.Quoted("zoo.json")
	delta = solver.Constant("delta")
)

func deltaAtom(selector, modifier string) solver.Atom {
	return solver.NewAtom("delta", solver.Constant(selector), solver.MustParseSymbol(modifier))
}

func inputs(selector string, extra ...solver.Symbol) []solver.Symbol {
	return append([]solver.Symbol{loc, delta, solver.Constant(selector)}, extra...)
}

func fixture() *solver.MemoryContext {
	D := solver.Constant("D")
	return solver.NewMemoryContext().
		Set(deltaAtom("s1", "addc(D,a)"), solver.True).
		Set(deltaAtom("s2", "addc(D,a)"), solver.True).
		Set(deltaAtom("s2", "delc(C,a)"), solver.False).
		Set(deltaAtom("s3", "addc(D,a)"), solver.False).
		Set(deltaAtom("s4", "addc(D,a)"), solver.True).
		Set(deltaAtom("s4", "addc(E,a)"), solver.True).
		AddInstance("dl_c_m", inputs("s1", D)...).
		AddInstance("dl_c_m", inputs("s2", D)...).
		AddInstance("dl_c_m", inputs("s3", D)...).
		AddInstance("dl_c_m", inputs("s4", D)...).
		AddInstance("dl_c_m", inputs("s2", solver.Constant("E"))...).
		AddOutputTuple("dl_c_m", inputs("s2", D), solver.Constant("b"))
}

func keys(ngs []solver.Nogood) []string {
	out := make([]string, len(ngs))
	for i, n := range ngs {
		out[i] = n.Key()
	}
	return out
}

func TestLearnAlternatives(t *testing.T) {
	ctx := fixture()
	sc := scenario.Extract(ctx, "delta", solver.Constant("s1"), nil)
	call := Call{Predicate: "dl_c_m", Inputs: inputs("s1", solver.Constant("D")), OutputArity: 1}

	got := Generator{}.Learn(ctx, call, sc, [][]solver.Symbol{{solver.Constant("a")}})
	assert.Equal(t, []string{
		"{-delta(s2,delc(C,a)), -ext_dl_c_m(\"zoo.json\",delta,s2,D,a), delta(s2,addc(D,a))}",
		"{-delta(s2,delc(C,a)), delta(s2,addc(D,a)), ext_dl_c_m(\"zoo.json\",delta,s2,D,b)}",
		"{-delta(s4,addc(E,a)), -ext_dl_c_m(\"zoo.json\",delta,s4,D,a), delta(s4,addc(D,a))}",
	}, keys(got))
	assert.Len(t, ctx.Learned(), 3)
}

func TestLearnIncludeCurrent(t *testing.T) {
	ctx := fixture()
	sc := scenario.Extract(ctx, "delta", solver.Constant("s1"), nil)
	call := Call{Predicate: "dl_c_m", Inputs: inputs("s1", solver.Constant("D")), OutputArity: 1}

	got := Generator{IncludeCurrent: true}.Learn(ctx, call, sc, [][]solver.Symbol{{solver.Constant("a")}})
	require.Len(t, got, 4)
	assert.Contains(t, keys(got), "{-ext_dl_c_m(\"zoo.json\",delta,s1,D,a), delta(s1,addc(D,a))}")
}

func TestLearnZeroOutput(t *testing.T) {
	ctx := solver.NewMemoryContext().
		Set(deltaAtom("s1", "addc(Cat,rex)"), solver.True).
		Set(deltaAtom("s2", "addc(Cat,rex)"), solver.True).
		AddInstance("dl_consistent", inputs("s1")...).
		AddInstance("dl_consistent", inputs("s2")...)
	sc := scenario.Extract(ctx, "delta", solver.Constant("s1"), nil)
	call := Call{Predicate: "dl_consistent", Inputs: inputs("s1")}

	// Inconsistent: the empty answer forbids the output atom being true.
	got := Generator{}.Learn(ctx, call, sc, nil)
	assert.Equal(t, []string{"{delta(s2,addc(Cat,rex)), ext_dl_consistent(\"zoo.json\",delta,s2)}"}, keys(got))

	// Consistent: the answer holds the empty tuple.
	got = Generator{}.Learn(ctx, call, sc, [][]solver.Symbol{{}})
	assert.Equal(t, []string{"{-ext_dl_consistent(\"zoo.json\",delta,s2), delta(s2,addc(Cat,rex))}"}, keys(got))
}

func TestLearnSkipsShortInputs(t *testing.T) {
	ctx := fixture()
	assert.Nil(t, Generator{}.Learn(ctx, Call{Predicate: "dl_c_m", Inputs: []solver.Symbol{loc}}, &scenario.Scenario{}, nil))
	assert.Empty(t, ctx.Learned())
}
