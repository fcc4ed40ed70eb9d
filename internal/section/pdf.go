package section

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// parsePDF extracts plain text from a PDF and runs the pattern strategy over
// it. The Go reader is tried first; pdftotext is an optional fallback.
func parsePDF(data []byte, opts Options) (*Tree, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "skripsiforge-pdf-*.pdf")
	if err != nil {
		return nil, &ParseError{Reason: "create temp file", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return nil, &ParseError{Reason: "write temp file", Err: err}
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && opts.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, &ParseError{Reason: "extract pdf text", Err: err}
	}

	// Form feeds are page separators; the pattern strategy works line-wise.
	return parsePattern(strings.ReplaceAll(text, "\f", "\n"), opts)
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
