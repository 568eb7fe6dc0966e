package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

const maxLogLine = 1 << 20

// LogBackend appends one JSON object per line and only rewrites the file on
// Persist (compaction). Appends from other processes never erase each other's
// lines. Compaction replaces the whole file, so a line another process appends
// between this process's last Load and the rename is lost; Reconcile before
// Persist narrows that window but does not close it.
type LogBackend struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewLogBackend returns a JSON Lines backend stored at path.
func NewLogBackend(path string, logger *slog.Logger) *LogBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogBackend{path: path, logger: logger}
}

// Name implements Backend.
func (b *LogBackend) Name() string { return "log" }

// Path implements Locator.
func (b *LogBackend) Path() string { return b.path }

// Load reads every line. Lines that fail to decode, such as a torn tail left
// by a crash, are skipped with a warning.
func (b *LogBackend) Load(ctx context.Context) ([]models.Record, error) {
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

	var records []models.Record
	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec models.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			b.logger.Warn("skipping malformed feedback line", slog.String("path", b.path), slog.Int("line", line), slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, models.NewStorageError("scan", b.path, err)
	}
	return records, nil
}

// Append writes rec as a single line and syncs it.
func (b *LogBackend) Append(ctx context.Context, rec models.Record, _ []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encodeJSON(rec, false)
	if err != nil {
		return models.NewStorageError("encode", b.path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return models.NewStorageError("append", b.path, err)
	}
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return models.NewStorageError("append", b.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return models.NewStorageError("append", b.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return models.NewStorageError("sync", b.path, err)
	}
	if err := f.Close(); err != nil {
		return models.NewStorageError("append", b.path, err)
	}
	return nil
}

// Persist compacts the log to exactly records.
func (b *LogBackend) Persist(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := encodeJSON(rec, false)
		if err != nil {
			return models.NewStorageError("encode", b.path, err)
		}
		buf.Write(line)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := writeFileAtomic(b.path, buf.Bytes(), 0o644); err != nil {
		return models.NewStorageError("compact", b.path, err)
	}
	return nil
}

// Close implements Backend.
func (b *LogBackend) Close() error { return nil }
