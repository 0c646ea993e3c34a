// -----------------------------------------------------------------------
// PDF Extractor - text content of procedure PDFs via pdfcpu
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
)

// Extractor pulls page content streams out of PDF documents
type Extractor struct {
	logger arbor.ILogger
}

// NewExtractor creates a new PDF extractor
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractText returns the text of every page in order. pdfcpu works on files,
// so the bytes are staged in a private temp directory that is removed afterwards.
func (e *Extractor) ExtractText(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	workDir, err := os.MkdirTemp("", "concierge-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "document.pdf")
	if err := os.WriteFile(inFile, content, 0600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create page dir: %w", err)
	}

	if err := api.ExtractContentFile(inFile, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := readPageFiles(outDir)

	var fullText strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		if text == "" {
			continue
		}
		if fullText.Len() > 0 {
			fullText.WriteString("\n\n")
		}
		fullText.WriteString(text)
	}

	e.logger.Debug().
		Int("page_count", pageCount).
		Int("text_length", fullText.Len()).
		Msg("Extracted PDF text")

	return fullText.String(), nil
}

// readPageFiles maps page numbers to the content files pdfcpu wrote
func readPageFiles(dir string) map[int]string {
	pageTexts := make(map[int]string)

	files, _ := os.ReadDir(dir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			continue
		}

		var pageNum int
		name := file.Name()
		if i := strings.Index(name, "_page_"); i >= 0 {
			name = "page_" + name[i+len("_page_"):]
		}
		if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = contentStreamText(string(content))
		}
	}
	return pageTexts
}

// contentStreamText keeps the string operands of text-showing operators
// (Tj, TJ, ' and ") from a raw content stream, one line per BT/ET block.
func contentStreamText(stream string) string {
	var out strings.Builder
	var current strings.Builder

	flush := func() {
		if line := strings.TrimSpace(current.String()); line != "" {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(line)
		}
		current.Reset()
	}

	depth := 0
	escaped := false
	for _, r := range stream {
		switch {
		case depth > 0 && escaped:
			current.WriteRune(r)
			escaped = false
		case depth > 0 && r == '\\':
			escaped = true
		case r == '(':
			if depth > 0 {
				current.WriteRune(r)
			}
			depth++
		case r == ')' && depth > 0:
			depth--
			if depth > 0 {
				current.WriteRune(r)
			}
		case depth > 0:
			current.WriteRune(r)
		case r == '\n':
			flush()
		}
	}
	flush()

	if out.Len() == 0 {
		return strings.TrimSpace(stream)
	}
	return out.String()
}
