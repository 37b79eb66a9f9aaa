package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fyrsmithlabs/skillforge/internal/sanitize"
)

func TestStore_WriteAndRead(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Write("SKILL.md", []byte("# skill")))

	content, err := store.Read("SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# skill"), content)
}

func TestStore_Write_ReplacesContent(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Write("scripts/run.sh", []byte("v1")))
	require.NoError(t, store.Write("scripts/run.sh", []byte("v2")))

	content, err := store.Read("scripts/run.sh")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Write_RejectsTraversal(t *testing.T) {
	store := NewStore()

	err := store.Write("../../etc/passwd", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
	// Rejected before any mutation.
	assert.Equal(t, 0, store.Len())
}

func TestStore_Write_RejectsNonTemplatePath(t *testing.T) {
	store := NewStore()

	err := store.Write("notes.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStore_Write_RejectsOversize(t *testing.T) {
	store := NewStore()

	err := store.Write("SKILL.md", make([]byte, MaxFileSize+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.Equal(t, 0, store.Len())
}

func TestStore_Write_AtLimit(t *testing.T) {
	store := NewStore()
	assert.NoError(t, store.Write("SKILL.md", make([]byte, MaxFileSize)))
}

func TestStore_Append(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Write("scripts/test.sh", []byte("harness\n")))
	require.NoError(t, store.Append("scripts/test.sh", []byte("gate2\n")))

	content, err := store.Read("scripts/test.sh")
	require.NoError(t, err)
	assert.Equal(t, []byte("harness\ngate2\n"), content)
}

func TestStore_Append_NotFound(t *testing.T) {
	store := NewStore()

	err := store.Append("scripts/test.sh", []byte("gate2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Append_SizeAccountsForExisting(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Write("scripts/test.sh", make([]byte, MaxFileSize-10)))

	err := store.Append("scripts/test.sh", make([]byte, 11))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSizeExceeded)

	// Existing content untouched after the failed append.
	content, err := store.Read("scripts/test.sh")
	require.NoError(t, err)
	assert.Len(t, content, MaxFileSize-10)
}

func TestStore_Snapshot_IsIndependent(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Write("SKILL.md", []byte("original")))

	snap := store.Snapshot()
	snap["SKILL.md"][0] = 'X'
	snap["references/examples.md"] = []byte("injected")

	content, err := store.Read("SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), content)
	assert.Equal(t, 1, store.Len())
}

func TestStore_Complete(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Complete())

	for _, p := range sanitize.CanonicalPaths() {
		require.NoError(t, store.Write(p, []byte("x")))
	}
	assert.True(t, store.Complete())
}

func TestStore_Persist(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Write("SKILL.md", []byte("doc")))
	require.NoError(t, store.Write("scripts/run.sh", []byte("#!/usr/bin/env bash\n")))
	require.NoError(t, store.Write("scripts/test.sh", []byte("#!/usr/bin/env bash\n")))
	require.NoError(t, store.Write("references/examples.md", []byte("examples")))

	dir := t.TempDir()
	require.NoError(t, store.Persist(dir))

	doc, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), doc)

	// Scripts carry the executable bit, documents do not.
	info, err := os.Stat(filepath.Join(dir, "scripts", "run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100, "run.sh should be executable")

	info, err = os.Stat(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&0o100, "SKILL.md should not be executable")
}

func TestProperty_StoreInvariants(t *testing.T) {
	// Whatever sequence of writes and appends is attempted, the store only
	// ever holds canonical paths and never a file over the size limit.
	rapid.Check(t, func(rt *rapid.T) {
		store := NewStore()
		paths := []string{
			"SKILL.md", "scripts/run.sh", "scripts/test.sh", "references/examples.md",
			"../evil", "other.md", "scripts/../SKILL.md", "/abs/path",
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			path := rapid.SampledFrom(paths).Draw(rt, "path")
			size := rapid.IntRange(0, MaxFileSize+1000).Draw(rt, "size")
			if rapid.Bool().Draw(rt, "append") {
				_ = store.Append(path, make([]byte, size))
			} else {
				_ = store.Write(path, make([]byte, size))
			}
		}

		for path, content := range store.Snapshot() {
			if !sanitize.IsCanonicalPath(path) {
				rt.Fatalf("non-canonical path in store: %q", path)
			}
			if len(content) > MaxFileSize {
				rt.Fatalf("file %q exceeds size limit: %d", path, len(content))
			}
		}
	})
}

func TestMetadata_Render_And_Parse(t *testing.T) {
	m := Metadata{
		Name:        "csv-summarizer",
		Description: "Summarizes CSV files from stdin",
		Version:     "0.1.0",
		License:     "MIT",
	}

	doc, err := m.Render("# csv-summarizer\n\nUsage notes.\n")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("---\n")))

	parsed, err := ParseFrontmatter(doc)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestMetadata_Validate_MissingKeys(t *testing.T) {
	base := Metadata{
		Name:        "csv-summarizer",
		Description: "desc",
		Version:     "0.1.0",
		License:     "MIT",
	}

	tests := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"missing name", func(m *Metadata) { m.Name = "" }},
		{"missing description", func(m *Metadata) { m.Description = "" }},
		{"missing version", func(m *Metadata) { m.Version = "" }},
		{"missing license", func(m *Metadata) { m.License = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			tt.mutate(&m)
			err := m.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedMetadata)
		})
	}
}

func TestParseFrontmatter_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"no delimiter":  []byte("# just a doc\n"),
		"unterminated":  []byte("---\nname: x\n"),
		"bad yaml":      []byte("---\nname: [\n---\n"),
		"missing keys":  []byte("---\nname: csv-summarizer\n---\n"),
		"empty":         {},
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFrontmatter(doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedMetadata)
		})
	}
}
