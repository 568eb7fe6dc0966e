package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/akiharsha/ai-assistant-chatbot/internal/testutil"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

func main() {
	var (
		baseURL string
		count   int
		rps     float64
		seed    int64
	)
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "Feedback engine HTTP address")
	flag.IntVar(&count, "n", 200, "Number of submissions")
	flag.Float64Var(&rps, "rps", 20, "Submissions per second")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Faker seed")
	flag.Parse()

	logger := utils.NewLogger(os.Getenv("FEEDBACK_LOG_LEVEL"), false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	faker := testutil.NewFaker(seed)
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	client := &http.Client{Timeout: 5 * time.Second}
	bar := progressbar.Default(int64(count), "submitting feedback")
	latencies := utils.NewLatencyTracker(count)

	var accepted, rejected, warned int
	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		start := time.Now()
		status, warning, err := submit(ctx, client, baseURL, testutil.Input(faker))
		latencies.Observe(time.Since(start))
		switch {
		case err != nil:
			logger.Warn("submission failed", slog.Any("error", err))
			rejected++
		case status != http.StatusCreated:
			rejected++
		case warning:
			warned++
			accepted++
		default:
			accepted++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	summary := latencies.Summary()
	logger.Info("load run finished",
		slog.Int("accepted", accepted),
		slog.Int("rejected", rejected),
		slog.Int("unpersisted", warned),
		slog.Duration("p50", summary.P50),
		slog.Duration("p95", summary.P95),
		slog.Duration("max", summary.Max),
	)
}

func submit(ctx context.Context, client *http.Client, baseURL string, payload any) (int, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/feedback", bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var result struct {
		Warning string `json:"warning"`
		Error   string `json:"error"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, false, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return resp.StatusCode, false, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return resp.StatusCode, false, fmt.Errorf("status %d: %s", resp.StatusCode, result.Error)
	}
	return resp.StatusCode, result.Warning != "", nil
}
