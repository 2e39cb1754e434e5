package util

import (
	"strings"
	"unicode"
)

// DownloadName turns a document title into a safe attachment file name.
func DownloadName(title, suffix string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.TrimRight(b.String(), "-")
	if name == "" {
		name = "document"
	}
	if len(name) > 80 {
		name = strings.TrimRight(name[:80], "-")
	}
	return name + suffix
}
