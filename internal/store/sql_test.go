package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

func TestRebindPostgres(t *testing.T) {
	b := &SQLBackend{driver: DriverPostgres}
	got := b.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	sqlite := &SQLBackend{driver: DriverSQLite}
	if q := sqlite.rebind("a = ?"); q != "a = ?" {
		t.Fatalf("sqlite queries must keep ? placeholders, got %s", q)
	}
}

func TestOpenSQLBackendRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenSQLBackend(context.Background(), "mysql", "dsn"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestSQLiteStoreAppendsInOrder(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "feedback.db")
	backend, err := OpenSQLBackend(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := Open(context.Background(), backend, quietLogger(), WithIDGenerator(sequentialIDs()))
	for _, lang := range []models.Language{models.LanguageTelugu, models.LanguageHindi, models.LanguageMixed} {
		if _, err := s.Create(context.Background(), sampleInput("u", lang)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	s.Close()

	reopenedBackend, err := OpenSQLBackend(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened := Open(context.Background(), reopenedBackend, quietLogger())
	defer reopened.Close()

	got := reopened.Records()
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	want := []string{"fb-001", "fb-002", "fb-003"}
	for i, rec := range got {
		if rec.FeedbackID != want[i] {
			t.Fatalf("row %d: expected %s, got %s", i, want[i], rec.FeedbackID)
		}
	}
	if got[2].Language != models.LanguageMixed {
		t.Fatalf("expected Mixed last, got %s", got[2].Language)
	}
}

func TestOpenBackendByKind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := map[string]string{
		KindFile:     "file",
		KindLog:      "log",
		DriverSQLite: "sql/sqlite",
	}
	for kind, want := range cases {
		backend, err := OpenBackend(ctx, kind, filepath.Join(dir, kind+".data"), filepath.Join(dir, "feedback.db"), nil)
		if err != nil {
			t.Fatalf("open %s: %v", kind, err)
		}
		if backend.Name() != want {
			t.Fatalf("expected %s backend, got %s", want, backend.Name())
		}
		_ = backend.Close()
	}

	if _, err := OpenBackend(ctx, "mongo", "", "", nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
