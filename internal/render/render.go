package render

import (
	"context"
	"fmt"
)

// Content is what the renderer lays out: placeholder tokens already substituted.
type Content struct {
	Title  string
	Header string
	Body   string
}

// Renderer turns substituted content into a fixed-layout artifact.
// Implementations must be deterministic for equal input and must fail
// rather than truncate.
type Renderer interface {
	Render(ctx context.Context, content Content) ([]byte, error)
}

// ArtifactRenderError wraps any failure to produce an artifact.
type ArtifactRenderError struct {
	Err error
}

func (e *ArtifactRenderError) Error() string {
	return fmt.Sprintf("render artifact: %v", e.Err)
}

func (e *ArtifactRenderError) Unwrap() error { return e.Err }
