package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// FileBackend keeps all records in one indented JSON array and rewrites the
// whole file on every append.
type FileBackend struct {
	path string
	perm os.FileMode
}

// NewFileBackend returns a backend stored at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, perm: 0o644}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Path implements Locator.
func (b *FileBackend) Path() string { return b.path }

// Load reads the array. Missing and blank files yield no records.
func (b *FileBackend) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewStorageError("read", b.path, err)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, models.NewStorageError("decode", b.path, err)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, nil
	}

	var records []models.Record
	if err := json.Unmarshal(text, &records); err != nil {
		return nil, models.NewStorageError("decode", b.path, err)
	}
	return records, nil
}

// Append rewrites the full sequence.
func (b *FileBackend) Append(ctx context.Context, _ models.Record, records []models.Record) error {
	return b.Persist(ctx, records)
}

// Persist atomically replaces the file with records.
func (b *FileBackend) Persist(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []models.Record{}
	}
	data, err := encodeJSON(records, true)
	if err != nil {
		return models.NewStorageError("encode", b.path, err)
	}
	if err := writeFileAtomic(b.path, data, b.perm); err != nil {
		return models.NewStorageError("write", b.path, err)
	}
	return nil
}

// Close implements Backend.
func (b *FileBackend) Close() error { return nil }
