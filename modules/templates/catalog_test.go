package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/collab-template-demo/domain/room"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCatalog_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "bb")
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0o755))

	list, err := NewCatalog(dir).List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.md", list[0].Name)
	assert.Equal(t, int64(1), list[0].Size)
	assert.Equal(t, "b.md", list[1].Name)
	assert.False(t, list[1].Modified.IsZero())
}

func TestCatalog_List_MissingDir(t *testing.T) {
	list, err := NewCatalog(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalog_Read(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.md", "# Report {{date}}")
	c := NewCatalog(dir)

	tests := []struct {
		name    string
		file    string
		want    string
		wantErr error
	}{
		{"existing", "report.md", "# Report {{date}}", nil},
		{"missing", "absent.md", "", ErrTemplateNotFound},
		{"traversal", "../secret.md", "", room.ErrInvalidTemplate},
		{"wrong extension", "report.txt", "", room.ErrInvalidTemplate},
		{"empty", "", "", room.ErrInvalidTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Read(tt.file)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Contains(t *testing.T) {
	c := NewCatalog("/srv/templates")

	assert.True(t, c.contains("/srv/templates/a.md"))
	assert.False(t, c.contains("/srv/other/a.md"))
	assert.False(t, c.contains("/srv/templates/../a.md"))
}

func TestCatalog_Default(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, DefaultFile, "custom default")
		assert.Equal(t, "custom default", NewCatalog(dir).Default())
	})

	t.Run("loaded once", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, DefaultFile, "first")
		c := NewCatalog(dir)

		writeFile(t, dir, DefaultFile, "second")
		assert.Equal(t, "first", c.Default())
		require.NoError(t, os.Remove(filepath.Join(dir, DefaultFile)))
		assert.Equal(t, "first", c.Default())

		got, err := c.Read(DefaultFile)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Empty(t, got)
	})

	t.Run("builtin fallback", func(t *testing.T) {
		doc := NewCatalog(t.TempDir()).Default()
		assert.Equal(t, BuiltinDefault, doc)
		for _, p := range []string{"{{date}}", "{{school}}", "{{teacher}}", "{{type}}", "{{content}}", "{{detail}}", "{{notes}}"} {
			assert.Contains(t, doc, p)
		}
	})
}
