package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"hexowl/internal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNogood() solver.Nogood {
	return solver.Nogood{
		solver.Pos(solver.NewAtom("delta", solver.Constant("s2"), solver.MustParseSymbol("addc(ex:E,ex:a)"))),
		solver.Neg(solver.NewAtom("ext_dl_c_m", solver.Quoted("zoo, json"), solver.Constant("delta"), solver.Quoted("http://ex.org/#a"))),
		solver.Pos(solver.NewAtom("flag")),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	ng := sampleNogood().Normalize()
	text, err := EncodeNogood(ng)
	require.NoError(t, err)
	back, err := DecodeNogood(text)
	require.NoError(t, err)
	assert.Equal(t, ng.Key(), back.Key())
}

func TestDecodeCorrupt(t *testing.T) {
	for _, in := range []string{"not json", `["f(a"]`} {
		_, err := DecodeNogood(in)
		assert.True(t, errors.Is(err, ErrCorrupt), in)
	}
}

func testStore(t *testing.T, s NogoodStore) {
	t.Helper()
	added, err := s.Append(zooTag, sampleNogood())
	require.NoError(t, err)
	assert.True(t, added)

	// Same clause in another order.
	ng := sampleNogood()
	ng[0], ng[2] = ng[2], ng[0]
	added, err = s.Append(zooTag, ng)
	require.NoError(t, err)
	assert.False(t, added)

	other := solver.Nogood{solver.Neg(solver.NewAtom("ext_dl_consistent", solver.Quoted("zoo.json")))}
	added, err = s.Append(zooTag, other)
	require.NoError(t, err)
	assert.True(t, added)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.All(zooTag)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, sampleNogood().Key(), all[0].Key())
	assert.Equal(t, other.Key(), all[1].Key())

	// The same clause learned against an edited document is a separate row
	// and stays invisible under the old tag.
	added, err = s.Append(editedTag, sampleNogood())
	require.NoError(t, err)
	assert.True(t, added)

	all, err = s.All(zooTag)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	all, err = s.All(editedTag)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, sampleNogood().Key(), all[0].Key())
	all, err = s.All("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.All("/elsewhere/zoo.json#0000000000000000")
	require.NoError(t, err)
	assert.Empty(t, none)

	// Len counts the rows of the journal itself.
	n, err = s.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

const (
	zooTag    = "/data/zoo.json#1f2e3d4c5b6a7980"
	editedTag = "/data/zoo.json#aa00bb11cc22dd33"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "nogoods.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	testStore(t, s)
	require.NoError(t, s.Close())

	// Reopening sees the journaled clauses.
	reopened, err := Open("sqlite", path)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteDropsUntaggedJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nogoods.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
	CREATE TABLE nogoods (
		id TEXT PRIMARY KEY,
		clause_key TEXT NOT NULL UNIQUE,
		literals TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	INSERT INTO nogoods (id, clause_key, literals, size) VALUES ('x', 'k', '["-ext_dl_consistent(\"zoo.json\")"]', 1);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	added, err := s.Append(zooTag, sampleNogood())
	require.NoError(t, err)
	assert.True(t, added)
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("postgres", "")
	assert.Error(t, err)
	_, err = Open("sqlite", "")
	assert.Error(t, err)
}
