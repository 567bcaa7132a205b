package server

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-progress/internal/classroom"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
	"github.com/p-n-ai/pai-progress/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type chapterCompletionRequest struct {
	TopicID   string `json:"topic_id" validate:"required,max=128"`
	ChapterID string `json:"chapter_id" validate:"required,max=128"`
}

type quizScoreRequest struct {
	TopicID string   `json:"topic_id" validate:"required,max=128"`
	Score   *float64 `json:"score" validate:"required"`
}

type quizScoreResponse struct {
	TopicID string  `json:"topic_id"`
	Score   float64 `json:"score"`
}

type studySessionRequest struct {
	TopicID string `json:"topic_id,omitempty" validate:"max=128"`
	Minutes int    `json:"minutes" validate:"required,gt=0,lte=1440"`
}

type quizRequest struct {
	TopicName  string `json:"topic_name" validate:"required,max=128"`
	Difficulty *int   `json:"difficulty,omitempty"`
}

type enrollRequest struct {
	ClassroomID string `json:"classroom_id" validate:"required,max=128"`
	Name        string `json:"name" validate:"max=256"`
}

type topicView struct {
	curriculum.Topic
	Chapters int `json:"chapters"`
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	topics := s.catalog.ListTopics()
	out := make([]topicView, len(topics))
	for i, t := range topics {
		out[i] = topicView{Topic: t, Chapters: len(s.catalog.ChaptersOf(t.ID))}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": out})
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	topic, err := s.catalog.Topic(r.PathValue("topicID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"topic_id": topic.ID,
		"chapters": s.catalog.ChaptersOf(topic.ID),
	})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !s.decode(w, r, &req) {
		return
	}
	topic, err := s.catalog.Lookup(req.TopicName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	difficulty := quiz.DefaultDifficulty
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}

	q, err := s.quiz.Generate(r.Context(), topic.ID, difficulty)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.tracker.ProgressOf(r.Context(), r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCompleteChapter(w http.ResponseWriter, r *http.Request) {
	var req chapterCompletionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tracker.RecordChapterCompletion(r.Context(), r.PathValue("learnerID"), req.TopicID, req.ChapterID); err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuizScore(w http.ResponseWriter, r *http.Request) {
	var req quizScoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	stored, err := s.tracker.RecordQuizScore(r.Context(), r.PathValue("learnerID"), req.TopicID, *req.Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r)
	writeJSON(w, http.StatusOK, quizScoreResponse{TopicID: req.TopicID, Score: stored})
}

func (s *Server) handleStudySession(w http.ResponseWriter, r *http.Request) {
	var req studySessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	d := time.Duration(req.Minutes) * time.Minute
	if err := s.tracker.RecordStudySession(r.Context(), r.PathValue("learnerID"), req.TopicID, d); err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recommend.Recommend(r.Context(), r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dashboard.Dashboard(r.Context(), r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prog, err := s.tracker.ProgressOf(ctx, r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dash, err := s.dashboard.Dashboard(ctx, prog.LearnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, prog, dash); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "progress-" + prog.LearnerID + ".xlsx",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	learnerID, err := progress.NormalizeLearnerID(r.PathValue("learnerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req enrollRequest
	if !s.decode(w, r, &req) {
		return
	}
	room := classroom.Classroom{ID: req.ClassroomID, Name: req.Name}
	if room.Name == "" {
		room.Name = room.ID
	}
	if err := s.enroller.Enroll(r.Context(), learnerID, room); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}
