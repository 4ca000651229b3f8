// Package renderer turns statement documents into files.
//
// Every renderer is deterministic: the same document always renders to the
// same bytes, so that bundles can be compared across runs.
package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/soa"
	"github.com/rs/zerolog"
)

// Renderer turns a statement document into the bytes of one file.
type Renderer = soa.Renderer

// Formats lists the output formats, the first one is the default.
var Formats = []string{"pdf", "md", "html", "json"}

// Options configures the renderers built by New.
type Options struct {
	// Logger receives the assets that could not be loaded. Disabled when zero.
	Logger zerolog.Logger
}

// New returns the renderer of format.
func New(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "pdf":
		return NewPDF(opts.Logger), nil
	case "md", "markdown":
		return Markdown{}, nil
	case "html":
		return HTML{}, nil
	case "json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q, want one of %q", format, Formats)
	}
}
