package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/services"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves the JSON API over the feedback service.
type HTTPHandler struct {
	svc    *services.FeedbackService
	logger *slog.Logger
}

// NewRouter builds the HTTP routes. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewRouter(svc *services.FeedbackService, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPHandler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/feedback", h.submitFeedback)
		r.Get("/feedback", h.listFeedback)
		r.Get("/feedback/recent", h.recentFeedback)
		r.Get("/metrics/overall", h.overallMetrics)
		r.Get("/metrics/languages", h.languageBreakdown)
		r.Get("/metrics/interaction-types", h.interactionTypeBreakdown)
		r.Get("/improvement-areas", h.improvementAreas)
		r.Get("/issues", h.commonIssues)
		r.Get("/report", h.report)
		r.Get("/report/charts", h.charts)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (h *HTTPHandler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	in := models.DefaultInput()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("malformed feedback: %v", err)})
		return
	}

	rec, err := h.svc.CreateFeedback(r.Context(), in)
	if err != nil {
		var (
			validationErr *models.ValidationError
			storageErr    *models.StorageError
		)
		switch {
		case errors.As(err, &validationErr):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error(), Fields: validationErr.Fields()})
		case errors.As(err, &storageErr):
			writeJSON(w, http.StatusCreated, SubmitResult{Feedback: rec, Warning: storageErr.Error()})
		default:
			h.logger.Error("submit feedback", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, SubmitResult{Feedback: rec})
}

func (h *HTTPHandler) listFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListRequest{
		UserID:          q.Get("user_id"),
		Language:        models.Language(q.Get("language")),
		InteractionType: models.InteractionType(q.Get("interaction_type")),
	}
	if v := q.Get("since_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since_days must be a non-negative integer", Fields: []string{"since_days"}})
			return
		}
		req.SinceDays = days
	}
	writeJSON(w, http.StatusOK, listResponse{Feedback: h.svc.ListFeedback(req.Filter())})
}

func (h *HTTPHandler) recentFeedback(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Feedback: h.svc.RecentFeedback(utils.Days(days))})
}

func (h *HTTPHandler) overallMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.OverallMetrics())
}

func (h *HTTPHandler) languageBreakdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.LanguageBreakdown())
}

func (h *HTTPHandler) interactionTypeBreakdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.InteractionTypeBreakdown())
}

func (h *HTTPHandler) improvementAreas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var threshold float64
	if v := q.Get("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "threshold must be a number", Fields: []string{"threshold"}})
			return
		}
		threshold = parsed
	}
	topN, ok := intParam(w, r, "top_n")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, improvementAreasResponse{ImprovementAreas: h.svc.ImprovementAreas(threshold, topN)})
}

func (h *HTTPHandler) commonIssues(w http.ResponseWriter, r *http.Request) {
	topN, ok := intParam(w, r, "top_n")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, commonIssuesResponse{CommonIssues: h.svc.CommonIssues(topN)})
}

func (h *HTTPHandler) report(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GenerateReport(r.Context()))
}

func (h *HTTPHandler) charts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.svc.Charts(r.Context()))
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: name + " must be an integer", Fields: []string{name}})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
