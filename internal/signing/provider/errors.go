package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured indicates no provider endpoint is configured.
var ErrNotConfigured = errors.New("signing provider is not configured")

// ProviderError is a non-2xx provider response. Detail holds the raw body.
type ProviderError struct {
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if len(detail) > 512 {
		detail = detail[:512] + "..."
	}
	return fmt.Sprintf("signing provider returned %d: %s", e.StatusCode, detail)
}

// Temporary reports whether retrying the same request may succeed.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
