// Package server exposes the progression engine over HTTP. Handlers decode
// typed, validated request bodies and map domain errors to status codes.
package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-progress/internal/classroom"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/dashboard"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
	"github.com/p-n-ai/pai-progress/internal/recommend"
)

const readyTimeout = 2 * time.Second

// Tracker records and reads learner progress.
type Tracker interface {
	RecordChapterCompletion(ctx context.Context, learnerID, topicID, chapterID string) error
	RecordQuizScore(ctx context.Context, learnerID, topicID string, score float64) (float64, error)
	RecordStudySession(ctx context.Context, learnerID, topicID string, d time.Duration) error
	ProgressOf(ctx context.Context, learnerID string) (progress.Snapshot, error)
}

// Recommender computes topic recommendations.
type Recommender interface {
	Recommend(ctx context.Context, learnerID string) (recommend.Recommendation, error)
}

// QuizGenerator produces scoped quizzes.
type QuizGenerator interface {
	Generate(ctx context.Context, topicID string, difficulty int) (quiz.Quiz, error)
}

// Dashboarder builds dashboard snapshots.
type Dashboarder interface {
	Dashboard(ctx context.Context, learnerID string) (dashboard.Snapshot, error)
}

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Config holds dependencies for the Server.
type Config struct {
	Catalog     *curriculum.Catalog
	Tracker     Tracker
	Recommender Recommender
	Quiz        QuizGenerator
	Dashboard   Dashboarder
	// Enroller is optional; without it the enrollment route is not served.
	Enroller classroom.Enroller
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
	// Advisory checks are reported on /readyz but never fail it.
	Advisory map[string]CheckFunc
}

// Server is the HTTP front of the progression engine.
type Server struct {
	catalog   *curriculum.Catalog
	tracker   Tracker
	recommend Recommender
	quiz      QuizGenerator
	dashboard Dashboarder
	enroller  classroom.Enroller
	checks    map[string]CheckFunc
	advisory  map[string]CheckFunc
	feed      *feed
	validate  *validator.Validate
	mux       *http.ServeMux
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	s := &Server{
		catalog:   cfg.Catalog,
		tracker:   cfg.Tracker,
		recommend: cfg.Recommender,
		quiz:      cfg.Quiz,
		dashboard: cfg.Dashboard,
		enroller:  cfg.Enroller,
		checks:    cfg.Checks,
		advisory:  cfg.Advisory,
		feed:      newFeed(),
		validate:  newValidator(),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("GET /api/topics", s.handleListTopics)
	s.mux.HandleFunc("GET /api/topics/{topicID}/chapters", s.handleListChapters)
	s.mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	s.mux.HandleFunc("GET /api/progress/{learnerID}", s.handleProgress)

	s.mux.HandleFunc("POST /api/learners/{learnerID}/chapters", s.handleCompleteChapter)
	s.mux.HandleFunc("POST /api/learners/{learnerID}/quiz-scores", s.handleQuizScore)
	s.mux.HandleFunc("POST /api/learners/{learnerID}/activity", s.handleStudySession)
	s.mux.HandleFunc("GET /api/learners/{learnerID}/recommendations", s.handleRecommendations)
	s.mux.HandleFunc("GET /api/learners/{learnerID}/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/learners/{learnerID}/report.xlsx", s.handleReport)
	s.mux.HandleFunc("GET /api/learners/{learnerID}/feed", s.handleFeed)
	if s.enroller != nil {
		s.mux.HandleFunc("POST /api/learners/{learnerID}/classrooms", s.handleEnroll)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(sw, r)
	slog.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", sw.status,
		"duration", time.Since(start),
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the progress feed upgrade to a websocket.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	failures := runChecks(r.Context(), s.checks)
	degraded := runChecks(r.Context(), s.advisory)

	if len(failures) > 0 {
		body := map[string]any{"status": "not ready", "checks": failures}
		if len(degraded) > 0 {
			body["degraded"] = degraded
		}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	if len(degraded) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "degraded": degraded})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func runChecks(ctx context.Context, checks map[string]CheckFunc) map[string]string {
	failures := map[string]string{}
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failures[name] = err.Error()
		}
	}
	return failures
}
