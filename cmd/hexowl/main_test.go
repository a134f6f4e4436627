package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zooDocument = `
iri: http://example.org/zoo
prefixes:
  zoo: "http://example.org/zoo#"
subclass_of:
  zoo:Dog: [zoo:Animal]
  zoo:Cat: [zoo:Animal]
disjoint:
  - [zoo:Dog, zoo:Cat]
individuals:
  zoo:rex: [zoo:Dog]
`

const zooIRI = "http://example.org/zoo#"

type fixture struct {
	meta   string
	config string
	dir    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zoo.yaml"), []byte(zooDocument), 0o644))
	meta := filepath.Join(dir, "zoo.json")
	require.NoError(t, os.WriteFile(meta, []byte(`{"load-uri": "zoo.yaml", "namespaces": {"zoo": "`+zooIRI+`"}}`), 0o644))
	cfgPath := filepath.Join(dir, "hexowl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
store:
  backend: sqlite
  path: %s
logging:
  level: info
  format: console
`, filepath.Join(dir, "nogoods.db"))), 0o644))
	return fixture{meta: meta, config: cfgPath, dir: dir}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	trueAtoms, falseAtoms, showLearned = nil, nil, false
	programPath, callTexts, showPreds, watch = "", nil, nil, false
	metricsPath, nogoodLimit = "", 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestQueryCommand(t *testing.T) {
	f := newFixture(t)
	out := execute(t, "query", "-c", f.config, "dl_c", f.meta, "zoo:Animal")
	assert.Contains(t, out, zooIRI+"rex")
}

func TestSimplifyCommand(t *testing.T) {
	f := newFixture(t)
	out := execute(t, "simplify", "-c", f.config, f.meta, zooIRI+"Dog")
	assert.Contains(t, out, "zoo:Dog")
}

func TestQueryMutationCommand(t *testing.T) {
	f := newFixture(t)
	out := execute(t, "query", "-c", f.config, "dl_consistent", f.meta, "delta", "s1",
		"--true", "delta(s1,addc(zoo:Cat,zoo:rex))", "--learned")
	assert.Contains(t, out, "store inconsistent")
	assert.Contains(t, out, "nogood ")

	out = execute(t, "query", "-c", f.config, "dl_c_m", f.meta, "delta", "s1", "zoo:Cat",
		"--true", "delta(s1,addc(zoo:Cat,zoo:tom))")
	assert.Contains(t, out, zooIRI+"tom")
}

func TestEvalCommandJournalsNogoods(t *testing.T) {
	f := newFixture(t)
	program := filepath.Join(f.dir, "zoo.mg")
	require.NoError(t, os.WriteFile(program, []byte(`delta(/s1, "addc(zoo:Cat,zoo:rex)").`), 0o644))

	call := fmt.Sprintf("dl_consistent(%q,delta,s1)", f.meta)
	out := execute(t, "eval", "-c", f.config, "--program", program, "--call", call, "--metrics", "-")
	assert.Contains(t, out, ": 0 tuples")
	assert.Contains(t, out, "hexowl_atoms_evaluations_total")

	out = execute(t, "nogoods", "-c", f.config)
	assert.Contains(t, out, "Total nogoods: 1 (sqlite)")
}

func TestParseCall(t *testing.T) {
	call, err := parseCall("dl_c_m(zoo.json, delta, s1, zoo:Cat)")
	require.NoError(t, err)
	assert.Equal(t, "dl_c_m", call.Predicate)
	require.Len(t, call.Inputs, 4)
	assert.True(t, call.Inputs[0].IsQuoted())
	assert.Equal(t, "zoo.json", call.Inputs[0].Unquoted())

	_, err = parseCall("dl_c_m")
	assert.Error(t, err)
}
