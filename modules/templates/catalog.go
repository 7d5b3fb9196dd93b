// Package templates serves the named template files rooms start from.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/collab-template-demo/domain/validation"
)

// DefaultFile is the template new rooms are seeded from.
const DefaultFile = "default.md"

var (
	// ErrTemplateNotFound is returned when the named file does not exist.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrAccessDenied is returned when a name resolves outside the catalog directory.
	ErrAccessDenied = errors.New("access denied")
)

// BuiltinDefault is used when the catalog has no default.md.
const BuiltinDefault = `# Template

**Visit date**: {{date}}
**School**: {{school}}
**Staff member**: {{teacher}}
**Request type**: {{type}}

## Inquiry
{{content}}

## Handling details
{{detail}}

## Handover notes
{{notes}}`

// Info describes one template file.
type Info struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Catalog reads templates from a single directory.
type Catalog struct {
	dir        string
	defaultDoc string
}

// NewCatalog creates a catalog rooted at dir and loads its default document.
func NewCatalog(dir string) *Catalog {
	c := &Catalog{dir: filepath.Clean(dir), defaultDoc: BuiltinDefault}
	if doc, err := c.Read(DefaultFile); err == nil {
		c.defaultDoc = doc
	}
	return c
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the *.md files of the catalog ordered by name.
// A missing directory yields an empty list.
func (c *Catalog) List() ([]Info, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	return lo.FilterMap(entries, func(e os.DirEntry, _ int) (Info, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			return Info{}, false
		}
		fi, err := e.Info()
		if err != nil {
			return Info{}, false
		}
		return Info{Name: e.Name(), Size: fi.Size(), Modified: fi.ModTime()}, true
	}), nil
}

// Read returns the content of the named template.
func (c *Catalog) Read(name string) (string, error) {
	if err := validation.ValidateFilename(name); err != nil {
		return "", err
	}

	path := filepath.Join(c.dir, name)
	if !c.contains(path) {
		return "", ErrAccessDenied
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrTemplateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

// Default returns default.md as read by NewCatalog, or BuiltinDefault when it
// could not be read.
func (c *Catalog) Default() string {
	return c.defaultDoc
}

func (c *Catalog) contains(path string) bool {
	rel, err := filepath.Rel(c.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
