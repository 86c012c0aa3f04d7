package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmcouncil/internal/model"
)

func validParticipants() []model.Participant {
	return []model.Participant{
		{ID: "alice", Name: "Alice", Model: "gpt-4o-mini", Provider: "openai"},
		{ID: "bob", Name: "Bob", Model: "claude-haiku", Provider: "anthropic"},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyRoster)

	dup := validParticipants()
	dup[1].ID = "alice"
	_, err = New(dup)
	assert.ErrorIs(t, err, ErrDuplicateID)

	missing := validParticipants()
	missing[0].Model = ""
	_, err = New(missing)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAllReturnsCopy(t *testing.T) {
	r, err := New(validParticipants())
	require.NoError(t, err)

	all := r.All()
	all[0].Name = "Mallory"

	assert.Equal(t, "Alice", r.All()[0].Name)
}

func TestResolveIDs(t *testing.T) {
	r, err := New(validParticipants())
	require.NoError(t, err)

	resolved := r.ResolveIDs([]string{"bob", "nobody", "alice"})

	require.Len(t, resolved, 2, "unknown ids skipped")
	assert.Equal(t, "bob", resolved[0].ID, "request order preserved")
	assert.Equal(t, "alice", resolved[1].ID)
}

func TestResolveIDsSkipsRepeats(t *testing.T) {
	r, err := New(validParticipants())
	require.NoError(t, err)

	resolved := r.ResolveIDs([]string{"alice", "alice", "bob", "alice"})

	require.Len(t, resolved, 2)
	assert.Equal(t, "alice", resolved[0].ID)
	assert.Equal(t, "bob", resolved[1].ID)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(r.All()), 2, "built-in roster keeps the service usable")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "participants.toml")
	content := `
[[participants]]
id = "alice"
name = "Alice"
model = "gpt-4o-mini"
provider = "openai"
avatar = "A"
color = "#ff0000"
personality = "Direct and analytical."

[[participants]]
id = "bob"
name = "Bob"
model = "llama3"
provider = "ollama"
avatar = "B"
color = "#00ff00"
personality = "Skeptical contrarian."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)
	assert.Equal(t, "ollama", all[1].Provider)
	assert.Equal(t, "Skeptical contrarian.", all[1].Personality)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "participants.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
