package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/testutil"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("fb-%03d", n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleInput(user string, lang models.Language) models.Input {
	in := models.DefaultInput()
	in.UserID = user
	in.Rating = 4
	in.Language = lang
	in.InteractionType = models.InteractionTranslation
	in.TechnicalIssues = "Slow response"
	return in
}

func TestCreateAssignsIdentityAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	s := Open(context.Background(), NewFileBackend(path), quietLogger(), WithClock(fixedClock(baseTime)))

	rec, err := s.Create(context.Background(), sampleInput("user_001", models.LanguageHindi))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.FeedbackID == "" {
		t.Fatalf("expected generated feedback id")
	}
	if !rec.Timestamp.Equal(baseTime) {
		t.Fatalf("expected timestamp %v, got %v", baseTime, rec.Timestamp)
	}

	reopened := Open(context.Background(), NewFileBackend(path), quietLogger())
	got := reopened.Records()
	if len(got) != 1 || got[0].FeedbackID != rec.FeedbackID {
		t.Fatalf("expected persisted record, got %+v", got)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	s := Open(context.Background(), NewFileBackend(path), quietLogger())

	in := sampleInput("user_001", "Klingon")
	in.ResponseSpeed = 9
	_, err := s.Create(context.Background(), in)

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := strings.Join(validationErr.Fields(), ",")
	if !strings.Contains(fields, "language_used") || !strings.Contains(fields, "response_speed") {
		t.Fatalf("expected language_used and response_speed violations, got %s", fields)
	}
	if s.Len() != 0 {
		t.Fatalf("invalid input must not be appended")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file to be written, stat err=%v", err)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := Open(context.Background(), nil, quietLogger())
	f := testutil.NewFaker(1)
	rec := testutil.Record(f, baseTime)

	if err := s.Add(context.Background(), rec); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := s.Add(context.Background(), rec)
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Violations[0].Rule != "unique" {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestPersistFailureKeepsRecordInMemory(t *testing.T) {
	boom := errors.New("disk full")
	backend := BackendFuncs{
		NameValue:  "broken",
		AppendFunc: func(context.Context, models.Record, []models.Record) error { return boom },
	}
	s := Open(context.Background(), backend, quietLogger())

	rec, err := s.Create(context.Background(), sampleInput("user_001", models.LanguageEnglish))
	var storageErr *models.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause")
	}
	if rec.FeedbackID == "" || s.Len() != 1 {
		t.Fatalf("expected record to be kept in memory")
	}
}

func TestRoundTripPreservesOrder(t *testing.T) {
	backends := map[string]func(t *testing.T) Backend{
		"file": func(t *testing.T) Backend { return NewFileBackend(filepath.Join(t.TempDir(), "feedback.json")) },
		"log":  func(t *testing.T) Backend { return NewLogBackend(filepath.Join(t.TempDir(), "feedback.jsonl"), quietLogger()) },
		"sqlite": func(t *testing.T) Backend {
			b, err := OpenSQLBackend(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "feedback.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return b
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			backend := build(t)
			defer backend.Close()

			// Out-of-order timestamps must survive as inserted.
			f := testutil.NewFaker(42)
			records := testutil.Records(f, 6, baseTime)
			records[0], records[5] = records[5], records[0]

			if err := backend.Persist(context.Background(), records); err != nil {
				t.Fatalf("persist: %v", err)
			}
			s := Open(context.Background(), backend, quietLogger())
			if err := s.Persist(context.Background()); err != nil {
				t.Fatalf("persist again: %v", err)
			}
			got, err := backend.Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got) != len(records) {
				t.Fatalf("expected %d records, got %d", len(records), len(got))
			}
			for i := range records {
				if !reflect.DeepEqual(normalize(records[i]), normalize(got[i])) {
					t.Fatalf("record %d mismatch:\nwant %+v\ngot  %+v", i, records[i], got[i])
				}
			}
		})
	}
}

func normalize(rec models.Record) models.Record {
	rec.Timestamp = rec.Timestamp.UTC()
	return rec
}

func TestOpenToleratesBadFiles(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"blank":     "  \n\t",
		"corrupt":   `[{"feedback_id": "x", "rating": `,
		"wrong doc": `{"not": "an array"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feedback.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			s := Open(context.Background(), NewFileBackend(path), quietLogger())
			if s.Len() != 0 {
				t.Fatalf("expected empty store, got %d", s.Len())
			}
			if _, err := s.Create(context.Background(), sampleInput("u", models.LanguageTelugu)); err != nil {
				t.Fatalf("store must stay usable: %v", err)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		s := Open(context.Background(), NewFileBackend(filepath.Join(t.TempDir(), "nope", "feedback.json")), quietLogger())
		if s.Len() != 0 {
			t.Fatalf("expected empty store")
		}
	})
}

func TestFileBackendReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	legacy := "\ufeff" + `[
  {
    "feedback_id": "a1",
    "user_id": "user_001",
    "timestamp": "2024-05-01T10:20:30.123456",
    "rating": 5,
    "language_used": "Hindi",
    "interaction_type": "translation",
    "comments": "बहुत अच्छा",
    "response_quality": 5,
    "cultural_sensitivity": 5,
    "language_accuracy": 4,
    "helpfulness": 5,
    "response_speed": 4,
    "user_satisfaction": 5,
    "would_recommend": true,
    "improvement_suggestions": "",
    "technical_issues": ""
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Comments != "बहुत अच्छा" || records[0].LanguageAccuracy != 4 {
		t.Fatalf("unexpected record %+v", records[0])
	}
	if records[0].Timestamp.Nanosecond() != 123456000 {
		t.Fatalf("expected fractional seconds to survive, got %v", records[0].Timestamp)
	}
}

func TestFileBackendWritesUnescapedUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	s := Open(context.Background(), NewFileBackend(path), quietLogger())
	in := sampleInput("user_001", models.LanguageHindi)
	in.ImprovementSuggestions = "थोड़ा तेज़ response <हो> सकता है"
	if _, err := s.Create(context.Background(), in); err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "थोड़ा तेज़ response <हो> सकता है") {
		t.Fatalf("expected raw UTF-8 in file, got %s", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestLogBackendSkipsTornLineAndCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	backend := NewLogBackend(path, quietLogger())
	s := Open(context.Background(), backend, quietLogger(), WithIDGenerator(sequentialIDs()))

	for _, lang := range []models.Language{models.LanguageHindi, models.LanguageTelugu} {
		if _, err := s.Create(context.Background(), sampleInput("user_001", lang)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString(`{"feedback_id":"torn","rat`)
	f.Close()

	reopened := Open(context.Background(), NewLogBackend(path, quietLogger()), quietLogger())
	if reopened.Len() != 2 {
		t.Fatalf("expected torn line to be skipped, got %d records", reopened.Len())
	}
	if err := reopened.Persist(context.Background()); err != nil {
		t.Fatalf("compact: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "torn") {
		t.Fatalf("expected compaction to drop the torn line")
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Fatalf("expected 2 lines after compaction, got %d", lines)
	}
}

func TestLoadDedupesByID(t *testing.T) {
	f := testutil.NewFaker(7)
	rec := testutil.Record(f, baseTime)
	dup := rec
	dup.Comments = "second copy"
	backend := BackendFuncs{LoadFunc: func(context.Context) ([]models.Record, error) {
		return []models.Record{rec, dup}, nil
	}}

	s := Open(context.Background(), backend, quietLogger())
	got := s.Records()
	if len(got) != 1 || got[0].Comments != rec.Comments {
		t.Fatalf("expected first occurrence to win, got %+v", got)
	}
}

func TestFilters(t *testing.T) {
	s := Open(context.Background(), nil, quietLogger(), WithClock(fixedClock(baseTime)), WithIDGenerator(sequentialIDs()))
	f := testutil.NewFaker(3)

	add := func(user string, lang models.Language, kind models.InteractionType, age time.Duration) {
		in := testutil.Input(f)
		in.UserID = user
		in.Language = lang
		in.InteractionType = kind
		rec, err := models.NewRecord(in, f.UUID(), baseTime.Add(-age))
		if err != nil {
			t.Fatalf("new record: %v", err)
		}
		if err := s.Add(context.Background(), rec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	add("u1", models.LanguageHindi, models.InteractionTranslation, time.Hour)
	add("u2", models.LanguageTelugu, models.InteractionLearning, 7*24*time.Hour)
	add("u1", models.LanguageHindi, models.InteractionCultural, 7*24*time.Hour+time.Nanosecond)

	if got := s.ByUser("u1"); len(got) != 2 {
		t.Fatalf("expected 2 records for u1, got %d", len(got))
	}
	if got := s.ByLanguage(models.LanguageTelugu); len(got) != 1 || got[0].UserID != "u2" {
		t.Fatalf("unexpected language filter result %+v", got)
	}
	if got := s.ByLanguage(models.LanguageMixed); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice for Mixed")
	}
	if got := s.ByInteractionType(models.InteractionCultural); len(got) != 1 {
		t.Fatalf("expected 1 cultural record, got %d", len(got))
	}

	recent := s.Recent(7 * 24 * time.Hour)
	if len(recent) != 2 {
		t.Fatalf("expected boundary record to be included and older excluded, got %d", len(recent))
	}

	combined := s.Query(models.Filter{UserID: "u1", Window: 24 * time.Hour})
	if len(combined) != 1 || combined[0].InteractionType != models.InteractionTranslation {
		t.Fatalf("unexpected combined filter result %+v", combined)
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := Open(context.Background(), nil, quietLogger())
	if _, err := s.Create(context.Background(), sampleInput("u", models.LanguageEnglish)); err != nil {
		t.Fatalf("create: %v", err)
	}
	got := s.Records()
	got[0].Rating = 1
	if s.Records()[0].Rating == 1 {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestFingerprintTracksContents(t *testing.T) {
	s := Open(context.Background(), nil, quietLogger(), WithIDGenerator(sequentialIDs()))
	empty := s.Fingerprint()
	if _, err := s.Create(context.Background(), sampleInput("u", models.LanguageEnglish)); err != nil {
		t.Fatalf("create: %v", err)
	}
	one := s.Fingerprint()
	if one == empty {
		t.Fatalf("expected fingerprint to change after create")
	}
	if s.Fingerprint() != one {
		t.Fatalf("expected stable fingerprint")
	}
}

func TestReconcileMergesExternalWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	first := Open(context.Background(), NewFileBackend(path), quietLogger())
	second := Open(context.Background(), NewFileBackend(path), quietLogger())

	a, err := first.Create(context.Background(), sampleInput("first", models.LanguageHindi))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	// second never saw a, so its rewrite drops it from disk.
	b, err := second.Create(context.Background(), sampleInput("second", models.LanguageTelugu))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	added, err := first.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 merged record, got %d", added)
	}

	onDisk, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := map[string]bool{}
	for _, rec := range onDisk {
		ids[rec.FeedbackID] = true
	}
	if !ids[a.FeedbackID] || !ids[b.FeedbackID] {
		t.Fatalf("expected both writers' records on disk, got %v", ids)
	}
}

func TestSelectIsPure(t *testing.T) {
	f := testutil.NewFaker(11)
	records := testutil.Records(f, 4, baseTime)
	out := Select(records, models.Filter{}, baseTime)
	if len(out) != len(records) {
		t.Fatalf("expected all records with empty filter")
	}
	out[0].Rating = 0
	if records[0].Rating == 0 {
		t.Fatalf("select must not alias its input")
	}
}

func TestConcurrentCreatesAgreeWithDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	s := Open(context.Background(), NewFileBackend(path), quietLogger())

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lang := models.Languages[i%len(models.Languages)]
			if _, err := s.Create(context.Background(), sampleInput(fmt.Sprintf("user_%03d", i), lang)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("create: %v", err)
	}

	inMemory := s.Records()
	if len(inMemory) != writers {
		t.Fatalf("expected %d records in memory, got %d", writers, len(inMemory))
	}
	ids := make(map[string]struct{}, writers)
	for _, rec := range inMemory {
		if _, dup := ids[rec.FeedbackID]; dup {
			t.Fatalf("duplicate feedback id %s", rec.FeedbackID)
		}
		ids[rec.FeedbackID] = struct{}{}
	}

	onDisk, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(onDisk) != writers {
		t.Fatalf("expected %d records on disk, got %d", writers, len(onDisk))
	}
	for i, rec := range onDisk {
		if rec.FeedbackID != inMemory[i].FeedbackID {
			t.Fatalf("disk order diverges from memory at %d: %s vs %s", i, rec.FeedbackID, inMemory[i].FeedbackID)
		}
	}
}

func TestLoadSkipsInvalidRecords(t *testing.T) {
	f := testutil.NewFaker(13)
	good := testutil.Record(f, baseTime)
	spanish := testutil.Record(f, baseTime)
	spanish.Language = "Spanish"
	outOfRange := testutil.Record(f, baseTime)
	outOfRange.ResponseSpeed = 9
	backend := BackendFuncs{LoadFunc: func(context.Context) ([]models.Record, error) {
		return []models.Record{spanish, good, outOfRange}, nil
	}}

	s := Open(context.Background(), backend, quietLogger())
	got := s.Records()
	if len(got) != 1 || got[0].FeedbackID != good.FeedbackID {
		t.Fatalf("expected only the valid record, got %+v", got)
	}
}

func TestReconcileSkipsInvalidExternalRecords(t *testing.T) {
	f := testutil.NewFaker(17)
	valid := testutil.Record(f, baseTime)
	invalid := testutil.Record(f, baseTime)
	invalid.InteractionType = "chat"
	var external []models.Record
	backend := BackendFuncs{
		LoadFunc: func(context.Context) ([]models.Record, error) { return external, nil },
	}

	s := Open(context.Background(), backend, quietLogger())
	external = []models.Record{invalid, valid}
	added, err := s.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if added != 1 || s.Len() != 1 || s.Records()[0].FeedbackID != valid.FeedbackID {
		t.Fatalf("expected only the valid external record merged, got %d/%+v", added, s.Records())
	}
}
