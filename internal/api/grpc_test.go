package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/akiharsha/ai-assistant-chatbot/internal/config"
	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/services"
	"github.com/akiharsha/ai-assistant-chatbot/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, backend store.Backend) *services.FeedbackService {
	t.Helper()
	if backend == nil {
		backend = store.NewFileBackend(filepath.Join(t.TempDir(), "feedback.json"))
	}
	st := store.Open(context.Background(), backend, discardLogger())
	return services.NewFeedbackService(discardLogger(), st, nil, nil, services.Options{})
}

func startGRPC(t *testing.T, svc *services.FeedbackService) (*FeedbackClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, NewGRPCHandler(svc, discardLogger()))
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewFeedbackClient(conn), conn
}

func TestGRPCSubmitAndReport(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.SeedSample(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	client, _ := startGRPC(t, svc)
	ctx := context.Background()

	in := models.DefaultInput()
	in.UserID = "user_004"
	in.Rating = 3
	in.Language = models.LanguageHindi
	in.InteractionType = models.InteractionGeneral
	in.ResponseSpeed = 1
	in.TechnicalIssues = "slow"

	result, err := client.SubmitFeedback(ctx, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning %q", result.Warning)
	}
	if result.Feedback.FeedbackID == "" || result.Feedback.ResponseSpeed != 1 || result.Feedback.Timestamp.IsZero() {
		t.Fatalf("unexpected stored record %+v", result.Feedback)
	}

	overall, err := client.OverallMetrics(ctx)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if overall.Total != 4 || overall.AverageResponseSpeed != 3.75 {
		t.Fatalf("unexpected overall metrics %+v", overall)
	}

	areas, err := client.ImprovementAreas(ctx, 0, 0)
	if err != nil {
		t.Fatalf("improvement areas: %v", err)
	}
	if len(areas) != 1 || areas[0] != models.DimensionResponseSpeed {
		t.Fatalf("expected [response_speed], got %v", areas)
	}

	issues, err := client.CommonIssues(ctx, 1)
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected a single issue, got %q", issues)
	}

	report, err := client.GenerateReport(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.RecordCount != 4 || report.DistinctUserCount != 4 {
		t.Fatalf("unexpected report counts %d/%d", report.RecordCount, report.DistinctUserCount)
	}
	if report.RatingDistribution[3] != 1 || report.RatingDistribution[5] != 2 {
		t.Fatalf("unexpected rating distribution %v", report.RatingDistribution)
	}
	if report.ByLanguage[models.LanguageHindi].Total != 2 {
		t.Fatalf("unexpected Hindi breakdown %+v", report.ByLanguage[models.LanguageHindi])
	}

	byType, err := client.InteractionTypeBreakdown(ctx)
	if err != nil {
		t.Fatalf("interaction breakdown: %v", err)
	}
	if len(byType) != len(models.InteractionTypes) || byType[models.InteractionGeneral].Total != 1 {
		t.Fatalf("unexpected interaction breakdown %+v", byType)
	}

	langs, err := client.LanguageBreakdown(ctx)
	if err != nil {
		t.Fatalf("language breakdown: %v", err)
	}
	if langs[models.LanguageMixed].Total != 0 || len(langs) != len(models.Languages) {
		t.Fatalf("unexpected language breakdown %+v", langs)
	}
}

func TestGRPCSubmitValidation(t *testing.T) {
	svc := newTestService(t, nil)
	client, _ := startGRPC(t, svc)

	in := models.DefaultInput()
	in.Rating = 9
	in.Language = "Klingon"
	in.InteractionType = models.InteractionGeneral

	_, err := client.SubmitFeedback(context.Background(), in)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if svc.Store().Len() != 0 {
		t.Fatalf("invalid feedback must not be stored")
	}
}

func TestGRPCSubmitPersistWarning(t *testing.T) {
	backend := store.BackendFuncs{AppendFunc: func(context.Context, models.Record, []models.Record) error {
		return errors.New("disk full")
	}}
	svc := newTestService(t, backend)
	client, _ := startGRPC(t, svc)

	in := models.DefaultInput()
	in.Rating = 4
	in.Language = models.LanguageTelugu
	in.InteractionType = models.InteractionLearning

	result, err := client.SubmitFeedback(context.Background(), in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Warning == "" {
		t.Fatalf("expected a persistence warning")
	}
	if svc.Store().Len() != 1 {
		t.Fatalf("expected record kept in memory")
	}
}

func TestGRPCListFeedback(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.SeedSample(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	client, _ := startGRPC(t, svc)

	records, err := client.ListFeedback(context.Background(), ListRequest{Language: models.LanguageTelugu, SinceDays: 7})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].UserID != "user_002" {
		t.Fatalf("unexpected records %+v", records)
	}

	_, err = client.ListFeedback(context.Background(), ListRequest{SinceDays: -1})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for negative window, got %v", err)
	}
}

func TestGRPCHealth(t *testing.T) {
	_, conn := startGRPC(t, newTestService(t, nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: FeedbackServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}
}

func TestStructRoundTrip(t *testing.T) {
	in := models.DefaultInput()
	in.UserID = "user_010"
	in.Comments = "బాగుంది"
	s, err := toStruct(in)
	if err != nil {
		t.Fatalf("toStruct: %v", err)
	}
	if got := s.Fields["language_used"].GetStringValue(); got != "" {
		t.Fatalf("expected empty language, got %q", got)
	}

	var out models.Input
	if err := fromStruct(s, &out); err != nil {
		t.Fatalf("fromStruct: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}
