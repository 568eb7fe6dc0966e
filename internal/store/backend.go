package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// Backend persists the ordered record sequence behind a Store.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Load returns every persisted record in insertion order. An absent
	// backing file is an empty sequence, not an error.
	Load(ctx context.Context) ([]models.Record, error)
	// Append durably records rec; records is the full sequence with rec last.
	Append(ctx context.Context, rec models.Record, records []models.Record) error
	// Persist replaces everything persisted with records.
	Persist(ctx context.Context, records []models.Record) error
	Close() error
}

// Locator is implemented by backends kept in a single local file.
type Locator interface {
	Path() string
}

// Kinds of local file backends accepted by OpenBackend. SQL backends are
// selected by driver name.
const (
	KindFile = "file"
	KindLog  = "log"
)

// OpenBackend builds the backend named by kind. File kinds use path, SQL
// drivers use dsn.
func OpenBackend(ctx context.Context, kind, path, dsn string, logger *slog.Logger) (Backend, error) {
	switch kind {
	case KindFile:
		return NewFileBackend(path), nil
	case KindLog:
		return NewLogBackend(path, logger), nil
	case DriverSQLite, DriverPostgres:
		backend, err := OpenSQLBackend(ctx, kind, dsn)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

// BackendFuncs adapts plain functions to Backend. Nil functions are no-ops.
type BackendFuncs struct {
	NameValue   string
	LoadFunc    func(ctx context.Context) ([]models.Record, error)
	AppendFunc  func(ctx context.Context, rec models.Record, records []models.Record) error
	PersistFunc func(ctx context.Context, records []models.Record) error
}

// Name implements Backend.
func (f BackendFuncs) Name() string {
	if f.NameValue == "" {
		return "func"
	}
	return f.NameValue
}

// Load implements Backend.
func (f BackendFuncs) Load(ctx context.Context) ([]models.Record, error) {
	if f.LoadFunc == nil {
		return nil, nil
	}
	return f.LoadFunc(ctx)
}

// Append implements Backend.
func (f BackendFuncs) Append(ctx context.Context, rec models.Record, records []models.Record) error {
	if f.AppendFunc == nil {
		return nil
	}
	return f.AppendFunc(ctx, rec, records)
}

// Persist implements Backend.
func (f BackendFuncs) Persist(ctx context.Context, records []models.Record) error {
	if f.PersistFunc == nil {
		return nil
	}
	return f.PersistFunc(ctx, records)
}

// Close implements Backend.
func (BackendFuncs) Close() error { return nil }

// decodeText strips a UTF-8 or UTF-16 byte order mark and yields UTF-8.
func decodeText(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	return out, err
}

// encodeJSON marshals v without HTML escaping so non-ASCII and markup stay readable.
func encodeJSON(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a truncated file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
