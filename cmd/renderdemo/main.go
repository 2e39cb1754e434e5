package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"signflow-backend/internal/placeholders"
	"signflow-backend/internal/render"
	"signflow-backend/internal/templates"
)

type valueFlags map[string]string

func (v valueFlags) String() string {
	parts := make([]string, 0, len(v))
	for k, val := range v {
		parts = append(parts, k+"="+val)
	}
	return strings.Join(parts, ",")
}

func (v valueFlags) Set(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected NAME=VALUE, got %q", raw)
	}
	v[strings.TrimSpace(name)] = value
	return nil
}

func main() {
	templateID := flag.String("template", "mutual-nda", "catalog template id")
	outPath := flag.String("out", "./out/sample_document.pdf", "output path for generated PDF")
	values := valueFlags{}
	flag.Var(values, "set", "placeholder value as NAME=VALUE (repeatable)")
	flag.Parse()

	catalog, err := templates.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}
	tmpl, err := catalog.Get(*templateID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "template %q: %v\n", *templateID, err)
		os.Exit(1)
	}

	filled := fill(tmpl.Placeholders, values)
	content := render.Content{
		Title:  tmpl.Title,
		Header: placeholders.Substitute(tmpl.Header, filled),
		Body:   placeholders.Substitute(tmpl.Body, filled),
	}

	pdfBytes, err := render.NewPDFRenderer("signflow renderdemo").Render(context.Background(), content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	if err := writeOutputs(*outPath, filled, pdfBytes); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	pages, err := render.Inspect(pdfBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render validation failed: %v\n", err)
		os.Exit(1)
	}
	if left := unresolved(content); len(left) > 0 {
		fmt.Printf("WARN: unresolved placeholders: %s\n", strings.Join(left, ", "))
	}

	fmt.Printf("OK: wrote %s (%d pages)\n", *outPath, pages)
}

func fill(defaults []placeholders.Placeholder, values map[string]string) []placeholders.Placeholder {
	out := make([]placeholders.Placeholder, 0, len(defaults))
	for _, p := range defaults {
		p = p.Clone()
		if v, ok := values[p.Name]; ok {
			p.Value = v
		}
		out = append(out, p)
	}
	return out
}

func unresolved(content render.Content) []string {
	var names []string
	for _, p := range placeholders.Extract(content.Header + "\n" + content.Body) {
		names = append(names, p.Name)
	}
	return names
}

func writeOutputs(outPath string, filled []placeholders.Placeholder, pdfBytes []byte) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(outPath, pdfBytes, 0o644); err != nil {
		return err
	}

	valuesPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_placeholders.json"
	payload, err := json.MarshalIndent(filled, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(valuesPath, payload, 0o644)
}
