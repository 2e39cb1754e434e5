package templates

import (
	"errors"
	"testing"
	"testing/fstest"

	"signflow-backend/internal/placeholders"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	list := c.List()
	if len(list) < 2 {
		t.Fatalf("expected built-in templates, got %d", len(list))
	}
	for _, tpl := range list {
		extracted := placeholders.Extract(tpl.Header + "\n" + tpl.Body)
		if len(extracted) == 0 {
			t.Fatalf("template %s has no placeholders", tpl.ID)
		}
		signers := 0
		for _, p := range tpl.Placeholders {
			if p.Signer {
				signers++
				if p.Position == nil {
					t.Fatalf("template %s signer %s has no position", tpl.ID, p.Name)
				}
			}
		}
		if signers == 0 {
			t.Fatalf("template %s has no signer placeholders", tpl.ID)
		}
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"catalog/a.json": {Data: []byte(`{"id":"x","title":"A","body":"{{A}}"}`)},
		"catalog/b.json": {Data: []byte(`{"id":"x","title":"B","body":"{{B}}"}`)},
	}
	if _, err := loadFS(fsys, "catalog"); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
