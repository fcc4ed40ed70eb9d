package section

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParseError reports content that cannot be decoded or parsed at all.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content parse: %s: %v", e.Reason, e.Err)
	}
	return "content parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options tune classification. Thresholds are configuration, not constants,
// because no single magic number fits every corpus.
type Options struct {
	// MinConfidence is the floor below which a classified node is retained
	// as a plain paragraph and a warning is recorded.
	MinConfidence float64

	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
}

// DefaultOptions mirror the service defaults in internal/config.
func DefaultOptions() Options {
	return Options{MinConfidence: 0.6}
}

// SupportedExtensions lists content formats the sectioner can handle.
var SupportedExtensions = map[string]bool{
	".docx":     true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
}

// IsSupportedExtension checks whether a filename's extension is parseable.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Parse builds a SectionTree from raw content bytes, choosing the strategy
// by file extension: structured for DOCX, pattern for plain text and PDF
// extractions, AST walks for Markdown and HTML.
func Parse(data []byte, filename string) (*Tree, error) {
	return ParseWithOptions(data, filename, DefaultOptions())
}

// ParseWithOptions is Parse with explicit tuning.
func ParseWithOptions(data []byte, filename string, opts Options) (*Tree, error) {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultOptions().MinConfidence
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".docx":
		return parseStructured(data, opts)
	case ".md", ".markdown":
		return parseMarkdown(data, opts)
	case ".html", ".htm":
		return parseHTML(data, opts)
	case ".pdf":
		return parsePDF(data, opts)
	case ".txt", "":
		if !utf8.Valid(data) {
			return nil, &ParseError{Reason: "content is not valid UTF-8 text"}
		}
		return parsePattern(string(data), opts)
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported content format %q", ext)}
	}
}
