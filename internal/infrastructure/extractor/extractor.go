package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
)

// Extractor reads a stored document blob and produces plain text.
// Plain text and markdown pass through after UTF-8 validation; PDFs go
// through the pdf reader.
type Extractor struct {
	storage ports.BlobStore
}

func NewExtractor(storage ports.BlobStore) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return extractPDF(raw, doc.Filename)
	default:
		return extractText(raw, doc.Filename)
	}
}

func extractText(raw []byte, filename string) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", fmt.Errorf("%s is not valid UTF-8", filename))
	}
	return strings.TrimSpace(string(raw)), nil
}

func extractPDF(raw []byte, filename string) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "parse pdf", fmt.Errorf("%s: %w", filename, err))
	}

	var b strings.Builder
	for page := 1; page <= r.NumPage(); page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single broken page should not discard the rest.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", domain.WrapError(domain.ErrExtraction, "parse pdf", fmt.Errorf("%s contains no extractable text", filename))
	}
	return out, nil
}
