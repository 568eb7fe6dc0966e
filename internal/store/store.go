package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// Store owns the ordered feedback sequence. Insertion order is arrival order.
// The mutex is the single writer serialization point and is held across
// persistence, so two in-process writers never interleave their rewrites.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.RWMutex
	records []models.Record
	ids     map[string]struct{}
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used for timestamps and recency windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides feedback id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Open builds a store and loads whatever the backend holds. It never fails:
// unreadable data is logged and the store starts empty.
func Open(ctx context.Context, backend Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		ids:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reload(ctx)
	return s
}

// Backend returns the backend the store persists through.
func (s *Store) Backend() Backend { return s.backend }

// Reload replaces the in-memory sequence with what the backend holds and
// returns a copy of it. Failures yield an empty sequence and a warning.
func (s *Store) Reload(ctx context.Context) []models.Record {
	loaded := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = loaded
	s.ids = make(map[string]struct{}, len(loaded))
	for _, rec := range loaded {
		s.ids[rec.FeedbackID] = struct{}{}
	}
	return cloneRecords(loaded)
}

func (s *Store) load(ctx context.Context) []models.Record {
	if s.backend == nil {
		return nil
	}
	records, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn("feedback store unreadable, starting empty", slog.String("backend", s.backend.Name()), slog.Any("error", err))
		return nil
	}
	return dedupe(records, s.logger)
}

// dedupe keeps the first occurrence of each id and drops records that fail
// validation, so every loaded record lands in exactly one language and
// interaction-type bucket.
func dedupe(records []models.Record, logger *slog.Logger) []models.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.FeedbackID]; ok {
			logger.Warn("duplicate feedback id ignored", slog.String("feedback_id", rec.FeedbackID))
			continue
		}
		if err := models.ValidateRecord(rec); err != nil {
			logger.Warn("invalid stored feedback ignored", slog.String("feedback_id", rec.FeedbackID), slog.Any("error", err))
			continue
		}
		seen[rec.FeedbackID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Create assigns a fresh id and timestamp, validates, appends and persists.
// A validation failure leaves the store untouched. A persist failure keeps the
// record in memory and is returned as a *models.StorageError alongside it.
func (s *Store) Create(ctx context.Context, in models.Input) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := models.NewRecord(in, s.newID(), s.now())
	if err != nil {
		return models.Record{}, err
	}
	if _, dup := s.ids[rec.FeedbackID]; dup {
		return models.Record{}, &models.ValidationError{Violations: []models.Violation{{Field: "feedback_id", Value: rec.FeedbackID, Rule: "unique"}}}
	}
	return rec, s.appendLocked(ctx, rec)
}

// Add appends a pre-built record after validating it. Duplicate ids are
// rejected.
func (s *Store) Add(ctx context.Context, rec models.Record) error {
	if err := models.ValidateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[rec.FeedbackID]; dup {
		return &models.ValidationError{Violations: []models.Violation{{Field: "feedback_id", Value: rec.FeedbackID, Rule: "unique"}}}
	}
	return s.appendLocked(ctx, rec)
}

func (s *Store) appendLocked(ctx context.Context, rec models.Record) error {
	s.records = append(s.records, rec)
	s.ids[rec.FeedbackID] = struct{}{}
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Append(ctx, rec, s.records); err != nil {
		s.logger.Warn("feedback kept in memory but not persisted", slog.String("feedback_id", rec.FeedbackID), slog.Any("error", err))
		return asStorageError("append", s.backend, err)
	}
	return nil
}

// Persist rewrites the backend with the full in-memory sequence.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Persist(ctx, s.records); err != nil {
		return asStorageError("persist", s.backend, err)
	}
	return nil
}

// Reconcile merges records other processes wrote to the backend. Unseen ids
// are appended in backend order. When the backend is missing records held in
// memory, the full sequence is written back.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	external, err := s.backend.Load(ctx)
	if err != nil {
		return 0, asStorageError("reconcile", s.backend, err)
	}
	onDisk := make(map[string]struct{}, len(external))
	added := 0
	for _, rec := range external {
		if _, dup := onDisk[rec.FeedbackID]; dup {
			continue
		}
		onDisk[rec.FeedbackID] = struct{}{}
		if _, known := s.ids[rec.FeedbackID]; known {
			continue
		}
		if err := models.ValidateRecord(rec); err != nil {
			s.logger.Warn("invalid external feedback ignored", slog.String("feedback_id", rec.FeedbackID), slog.Any("error", err))
			continue
		}
		s.records = append(s.records, rec)
		s.ids[rec.FeedbackID] = struct{}{}
		added++
	}

	if len(onDisk) < len(s.records) {
		s.logger.Info("backend missing in-memory feedback, rewriting", slog.Int("backend_records", len(onDisk)), slog.Int("records", len(s.records)))
		if err := s.backend.Persist(ctx, s.records); err != nil {
			return added, asStorageError("reconcile", s.backend, err)
		}
	}
	return added, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Records returns a copy of the full sequence.
func (s *Store) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Fingerprint changes whenever the record set changes. Records are immutable,
// so ids and count identify the contents.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fingerprint(s.records)
}

// Snapshot returns a copy of the records together with their fingerprint,
// taken under one lock.
func (s *Store) Snapshot() ([]models.Record, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), fingerprint(s.records)
}

func fingerprint(records []models.Record) string {
	h := fnv.New64a()
	for _, rec := range records {
		h.Write([]byte(rec.FeedbackID))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%d-%016x", len(records), h.Sum64())
}

// ByUser returns the records submitted by userID.
func (s *Store) ByUser(userID string) []models.Record {
	return s.Query(models.Filter{UserID: userID})
}

// ByLanguage returns the records for lang.
func (s *Store) ByLanguage(lang models.Language) []models.Record {
	return s.Query(models.Filter{Language: lang})
}

// ByInteractionType returns the records of interaction type t.
func (s *Store) ByInteractionType(t models.InteractionType) []models.Record {
	return s.Query(models.Filter{InteractionType: t})
}

// Recent returns records no older than window; the boundary is inclusive.
func (s *Store) Recent(window time.Duration) []models.Record {
	return s.Query(models.Filter{Window: window})
}

// Query applies filter to a snapshot of the store.
func (s *Store) Query(filter models.Filter) []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Select(s.records, filter, s.now())
}

// Select returns the subsequence of records matching every non-zero filter
// field, preserving order. The result never aliases records.
func Select(records []models.Record, filter models.Filter, now time.Time) []models.Record {
	var cutoff time.Time
	if filter.Window > 0 {
		cutoff = now.Add(-filter.Window)
	}
	out := make([]models.Record, 0)
	for _, rec := range records {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.Language != "" && rec.Language != filter.Language {
			continue
		}
		if filter.InteractionType != "" && rec.InteractionType != filter.InteractionType {
			continue
		}
		if filter.Window > 0 && rec.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func cloneRecords(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	return out
}

func asStorageError(op string, backend Backend, err error) error {
	var storageErr *models.StorageError
	if errors.As(err, &storageErr) {
		return storageErr
	}
	path := backend.Name()
	if loc, ok := backend.(Locator); ok {
		path = loc.Path()
	}
	return models.NewStorageError(op, path, err)
}
