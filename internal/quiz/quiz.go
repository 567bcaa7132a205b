// Package quiz scopes practice-quiz requests against the curriculum and
// delegates question text to an external generator. Generation failures
// degrade to a placeholder quiz.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-progress/internal/collab"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

// DefaultDifficulty is used when a caller does not ask for one.
const DefaultDifficulty = 2

const defaultGenerateTimeout = 10 * time.Second

// Request is a scoped quiz request handed to a Generator.
type Request struct {
	TopicID    string `json:"topic_id"`
	Difficulty int    `json:"difficulty"`
}

// Quiz is the generated quiz returned to the learner.
type Quiz struct {
	TopicID     string `json:"topic_id"`
	Topic       string `json:"topic"`
	Difficulty  int    `json:"difficulty"`
	Text        string `json:"quiz"`
	Placeholder bool   `json:"placeholder"`
}

// Generator produces quiz text for a scoped request.
type Generator interface {
	GenerateQuiz(ctx context.Context, topic curriculum.Topic, req Request) (string, error)
}

// Scoper validates quiz requests against the catalog.
type Scoper struct {
	catalog *curriculum.Catalog
}

// NewScoper creates a Scoper.
func NewScoper(catalog *curriculum.Catalog) *Scoper {
	return &Scoper{catalog: catalog}
}

// ScopeQuiz clamps the requested difficulty into [1, tier+1] for the topic.
// Learners may ask for one tier above a topic's own tier, never more.
func (s *Scoper) ScopeQuiz(topicID string, requested int) (Request, error) {
	topic, err := s.catalog.Topic(topicID)
	if err != nil {
		return Request{}, err
	}
	return Request{TopicID: topic.ID, Difficulty: clamp(requested, 1, topic.Difficulty+1)}, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ServiceConfig holds dependencies for the Service.
type ServiceConfig struct {
	Catalog   *curriculum.Catalog
	Generator Generator
	Timeout   time.Duration
}

// Service scopes a request and generates its quiz text.
type Service struct {
	catalog   *curriculum.Catalog
	scoper    *Scoper
	generator Generator
	timeout   time.Duration
}

// NewService creates a Service. A nil Generator always yields placeholders.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGenerateTimeout
	}
	return &Service{
		catalog:   cfg.Catalog,
		scoper:    NewScoper(cfg.Catalog),
		generator: cfg.Generator,
		timeout:   cfg.Timeout,
	}
}

// Generate builds a quiz for a topic. Only an unknown topic is an error;
// generator failures are logged and replaced by a placeholder.
func (s *Service) Generate(ctx context.Context, topicID string, difficulty int) (Quiz, error) {
	req, err := s.scoper.ScopeQuiz(topicID, difficulty)
	if err != nil {
		return Quiz{}, err
	}
	topic, err := s.catalog.Topic(req.TopicID)
	if err != nil {
		return Quiz{}, err
	}

	q := Quiz{TopicID: topic.ID, Topic: topic.DisplayName(), Difficulty: req.Difficulty}

	if s.generator == nil {
		q.Text, q.Placeholder = Placeholder(topic.DisplayName()), true
		return q, nil
	}

	text, err := collab.Call(ctx, "quiz generator", s.timeout, func(ctx context.Context) (string, error) {
		return s.generator.GenerateQuiz(ctx, topic, req)
	})
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = fmt.Errorf("%w: quiz generator returned empty text", collab.ErrUnavailable)
	}
	if err != nil {
		slog.Warn("quiz generation degraded to placeholder",
			"topic", topic.ID,
			"difficulty", req.Difficulty,
			"error", err,
		)
		q.Text, q.Placeholder = Placeholder(topic.DisplayName()), true
		return q, nil
	}

	q.Text = text
	return q, nil
}

// Placeholder returns the stand-in quiz served when no generator answers.
func Placeholder(topicName string) string {
	return fmt.Sprintf("Sample quiz for %s\n\nQuestion: What is %s?\nA) Option 1\nB) Option 2\nC) Option 3\nD) Option 4",
		topicName, topicName)
}
