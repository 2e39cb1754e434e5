package placeholders

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Extract scans body for {{NAME}} tokens and returns one unfilled placeholder
// per distinct name, in first-occurrence order.
func Extract(body string) []Placeholder {
	matches := tokenPattern.FindAllStringSubmatch(body, -1)
	out := make([]Placeholder, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Placeholder{
			Name:        name,
			Description: DescribeName(name),
			Format:      TextFormat{},
		})
	}
	return out
}

// DescribeName derives a human-readable description from a placeholder name.
func DescribeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", " ")
}

// Merge combines freshly extracted placeholders with previously stored ones.
// Stored entries win for every name they share with extracted. Stored entries
// no longer referenced by the body are kept, after the extracted ones, so
// captured values are never dropped.
func Merge(extracted, stored []Placeholder) []Placeholder {
	byName := make(map[string]Placeholder, len(stored))
	for _, s := range stored {
		if _, ok := byName[s.Name]; ok {
			continue
		}
		byName[s.Name] = s
	}

	out := make([]Placeholder, 0, len(extracted)+len(stored))
	used := make(map[string]struct{}, len(extracted)+len(stored))
	for _, e := range extracted {
		if _, ok := used[e.Name]; ok {
			continue
		}
		used[e.Name] = struct{}{}
		if s, ok := byName[e.Name]; ok {
			out = append(out, s.Clone())
			continue
		}
		out = append(out, e.Clone())
	}
	for _, s := range stored {
		if _, ok := used[s.Name]; ok {
			continue
		}
		used[s.Name] = struct{}{}
		out = append(out, s.Clone())
	}
	return out
}

// Substitute replaces every {{name}} token whose placeholder has a value.
// Unfilled tokens stay in place. Values are inserted literally and never rescanned.
func Substitute(body string, placeholders []Placeholder) string {
	values := make(map[string]string, len(placeholders))
	for _, p := range placeholders {
		if p.Value == "" {
			continue
		}
		if _, ok := values[p.Name]; ok {
			continue
		}
		values[p.Name] = p.Value
	}
	if len(values) == 0 {
		return body
	}
	return tokenPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := token[2 : len(token)-2]
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}

// Tokens renders the placeholder names back into body tokens.
func Tokens(placeholders []Placeholder) string {
	parts := make([]string, 0, len(placeholders))
	for _, p := range placeholders {
		parts = append(parts, "{{"+p.Name+"}}")
	}
	return strings.Join(parts, " ")
}

// Referenced reports which placeholders appear in body.
func Referenced(body string, placeholders []Placeholder) map[string]bool {
	present := make(map[string]bool, len(placeholders))
	for _, p := range Extract(body) {
		present[p.Name] = true
	}
	out := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		out[p.Name] = present[p.Name]
	}
	return out
}

// Find returns the placeholder with the given name.
func Find(placeholders []Placeholder, name string) (Placeholder, bool) {
	for _, p := range placeholders {
		if p.Name == name {
			return p, true
		}
	}
	return Placeholder{}, false
}
