package extractor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ovoronin/document-chat/internal/core/domain"
)

type storageFake struct {
	blobs map[string][]byte
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader, _ string) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.blobs[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.blobs[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open blob", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	delete(f.blobs, key)
	return nil
}

func TestExtractPlainText(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"owner/doc.txt": []byte("  hello world\n"),
	}}
	e := NewExtractor(storage)

	text, err := e.Extract(context.Background(), &domain.Document{Filename: "doc.txt", StoragePath: "owner/doc.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"owner/doc.txt": {0xff, 0xfe, 0x00},
	}}
	e := NewExtractor(storage)

	_, err := e.Extract(context.Background(), &domain.Document{Filename: "doc.txt", StoragePath: "owner/doc.txt"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractRejectsBrokenPDF(t *testing.T) {
	storage := &storageFake{blobs: map[string][]byte{
		"owner/doc.pdf": []byte("not a pdf at all"),
	}}
	e := NewExtractor(storage)

	_, err := e.Extract(context.Background(), &domain.Document{Filename: "doc.pdf", StoragePath: "owner/doc.pdf"})
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractMissingBlob(t *testing.T) {
	e := NewExtractor(&storageFake{blobs: map[string][]byte{}})

	_, err := e.Extract(context.Background(), &domain.Document{Filename: "doc.txt", StoragePath: "owner/doc.txt"})
	if err == nil {
		t.Fatalf("expected error for missing blob")
	}
}
