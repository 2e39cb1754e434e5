package templates

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"signflow-backend/internal/placeholders"
)

//go:embed catalog/*.json
var catalogFiles embed.FS

// ErrNotFound indicates an unknown template id.
var ErrNotFound = errors.New("template not found")

// Template is a reusable document skeleton with placeholder defaults.
type Template struct {
	ID           string                     `json:"id"`
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	Header       string                     `json:"header"`
	Body         string                     `json:"body"`
	Placeholders []placeholders.Placeholder `json:"placeholders"`
}

// Catalog holds templates keyed by id.
type Catalog struct {
	byID map[string]Template
	ids  []string
}

// Load parses the embedded template catalog.
func Load() (*Catalog, error) {
	return loadFS(catalogFiles, "catalog")
}

func loadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read template catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		var tpl Template
		if err := json.Unmarshal(raw, &tpl); err != nil {
			return nil, fmt.Errorf("decode template %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(tpl.ID) == "" {
			return nil, fmt.Errorf("template %s: id is required", entry.Name())
		}
		if _, dup := c.byID[tpl.ID]; dup {
			return nil, fmt.Errorf("template %s: duplicate id %q", entry.Name(), tpl.ID)
		}
		if err := placeholders.ValidateNames(tpl.Placeholders); err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
		c.byID[tpl.ID] = tpl
		c.ids = append(c.ids, tpl.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// List returns all templates ordered by id.
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, error) {
	tpl, ok := c.byID[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return tpl, nil
}
