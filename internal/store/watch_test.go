package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

func TestWatcherMergesExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	local := Open(context.Background(), NewFileBackend(path), quietLogger())

	w, err := NewWatcher(local, path, 20*time.Millisecond, quietLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	reconciled := make(chan int, 16)
	w.OnReconcile = func(added int, err error) {
		if err == nil {
			reconciled <- added
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	remote := Open(context.Background(), NewFileBackend(path), quietLogger())
	rec, err := remote.Create(context.Background(), sampleInput("remote", models.LanguageEnglish))
	if err != nil {
		t.Fatalf("remote create: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reconciled:
			for _, got := range local.Records() {
				if got.FeedbackID == rec.FeedbackID {
					return
				}
			}
		case <-deadline:
			t.Fatalf("expected watcher to merge remote record")
		}
	}
}

func TestWatchRequiresLocalFile(t *testing.T) {
	s := Open(context.Background(), BackendFuncs{}, quietLogger())
	if err := Watch(context.Background(), s, 0, quietLogger()); err == nil {
		t.Fatalf("expected error for backend without a path")
	}
}
