// Package document turns uploaded resumes into plain text.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/spigell/interview-agent/internal/faults"
)

var pdfMagic = []byte("%PDF-")

// Extractor converts raw document bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// AutoExtractor sniffs the payload and handles PDF and plain UTF-8 text.
type AutoExtractor struct{}

func NewExtractor() *AutoExtractor {
	return &AutoExtractor{}
}

func (e *AutoExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case len(bytes.TrimSpace(data)) == 0:
		return "", fmt.Errorf("%w: document is empty", faults.ErrExtractionFailed)
	case bytes.HasPrefix(data, pdfMagic):
		return extractPDF(data)
	case utf8.Valid(data) && !bytes.ContainsRune(data, 0):
		return CleanText(string(data)), nil
	default:
		return "", fmt.Errorf("%w: only pdf and plain text resumes are supported", faults.ErrUnsupportedFormat)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", faults.ErrExtractionFailed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", faults.ErrExtractionFailed, err)
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}

	text = CleanText(builder.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text content found in pdf (scanned images are not supported)", faults.ErrExtractionFailed)
	}

	return text, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
