package quiz_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-progress/internal/ai"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/quiz"
)

func testCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	catalog, err := curriculum.NewCatalog([]curriculum.Topic{
		{ID: "Basics", Name: "Jac Basics", Difficulty: 1, TeachingNotes: "Start from nodes.",
			Chapters: []curriculum.Chapter{
				{ID: "nodes", Title: "Nodes and Edges", Ordinal: 1},
				{ID: "abilities", Ordinal: 2},
			}},
		{ID: "agents", Name: "byLLM Agents", Difficulty: 4},
	})
	require.NoError(t, err)
	return catalog
}

type generatorFunc func(ctx context.Context, topic curriculum.Topic, req quiz.Request) (string, error)

func (f generatorFunc) GenerateQuiz(ctx context.Context, topic curriculum.Topic, req quiz.Request) (string, error) {
	return f(ctx, topic, req)
}

func TestScopeQuiz_Clamps(t *testing.T) {
	scoper := quiz.NewScoper(testCatalog(t))

	tests := []struct {
		name      string
		topic     string
		requested int
		want      int
	}{
		{"challenge capped at tier+1", "Basics", 10, 2},
		{"native tier kept", "Basics", 1, 1},
		{"one above tier kept", "agents", 5, 5},
		{"below range", "agents", 0, 1},
		{"negative", "Basics", -3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := scoper.ScopeQuiz(tt.topic, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, quiz.Request{TopicID: tt.topic, Difficulty: tt.want}, req)
		})
	}
}

func TestScopeQuiz_UnknownTopic(t *testing.T) {
	_, err := quiz.NewScoper(testCatalog(t)).ScopeQuiz("Rust", 1)
	assert.ErrorIs(t, err, curriculum.ErrUnknownTopic)
}

func TestService_Generate(t *testing.T) {
	var got quiz.Request
	svc := quiz.NewService(quiz.ServiceConfig{
		Catalog: testCatalog(t),
		Generator: generatorFunc(func(_ context.Context, _ curriculum.Topic, req quiz.Request) (string, error) {
			got = req
			return "  Quiz: Jac Basics\n1. ...  ", nil
		}),
	})

	q, err := svc.Generate(context.Background(), "Basics", 10)
	require.NoError(t, err)

	assert.Equal(t, quiz.Request{TopicID: "Basics", Difficulty: 2}, got, "generator sees the scoped request")
	assert.Equal(t, "Quiz: Jac Basics\n1. ...", q.Text)
	assert.False(t, q.Placeholder)
	assert.Equal(t, "Jac Basics", q.Topic)
}

func TestService_Generate_Degrades(t *testing.T) {
	tests := []struct {
		name      string
		generator quiz.Generator
	}{
		{"no generator", nil},
		{"generator error", generatorFunc(func(context.Context, curriculum.Topic, quiz.Request) (string, error) {
			return "", errors.New("model overloaded")
		})},
		{"empty text", generatorFunc(func(context.Context, curriculum.Topic, quiz.Request) (string, error) {
			return "   ", nil
		})},
		{"hung generator", generatorFunc(func(ctx context.Context, _ curriculum.Topic, _ quiz.Request) (string, error) {
			time.Sleep(time.Second)
			return "too late", nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := quiz.NewService(quiz.ServiceConfig{
				Catalog:   testCatalog(t),
				Generator: tt.generator,
				Timeout:   20 * time.Millisecond,
			})

			q, err := svc.Generate(context.Background(), "Basics", 2)
			require.NoError(t, err)
			assert.True(t, q.Placeholder)
			assert.Equal(t, quiz.Placeholder("Jac Basics"), q.Text)
		})
	}
}

func TestService_Generate_UnknownTopic(t *testing.T) {
	svc := quiz.NewService(quiz.ServiceConfig{Catalog: testCatalog(t)})

	_, err := svc.Generate(context.Background(), "Rust", 2)
	assert.ErrorIs(t, err, curriculum.ErrUnknownTopic)
}

func TestPlaceholder(t *testing.T) {
	want := "Sample quiz for Walkers\n\nQuestion: What is Walkers?\nA) Option 1\nB) Option 2\nC) Option 3\nD) Option 4"
	assert.Equal(t, want, quiz.Placeholder("Walkers"))
}

func TestAIGenerator_Prompt(t *testing.T) {
	catalog := testCatalog(t)
	mock := ai.NewMockProvider("Quiz: Jac Basics")
	gen := quiz.NewAIGenerator(mock, catalog)

	topic, err := catalog.Topic("Basics")
	require.NoError(t, err)

	text, err := gen.GenerateQuiz(context.Background(), topic, quiz.Request{TopicID: "Basics", Difficulty: 2})
	require.NoError(t, err)
	assert.Equal(t, "Quiz: Jac Basics", text)

	last := mock.LastRequest()
	require.NotNil(t, last)
	assert.Equal(t, ai.TaskQuiz, last.Task)
	require.Len(t, last.Messages, 2)

	prompt := last.Messages[1].Content
	for _, want := range []string{"Topic: Jac Basics", "Difficulty: 2 (topic tier 1)", "1. Nodes and Edges", "2. abilities", "Start from nodes."} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}

func TestAIGenerator_ThroughService(t *testing.T) {
	catalog := testCatalog(t)
	router := ai.NewRouter()
	router.Register("down", &ai.MockProvider{Err: errors.New("503")})

	svc := quiz.NewService(quiz.ServiceConfig{
		Catalog:   catalog,
		Generator: quiz.NewAIGenerator(router, catalog),
	})

	q, err := svc.Generate(context.Background(), "agents", quiz.DefaultDifficulty)
	require.NoError(t, err)
	assert.True(t, q.Placeholder, "router failure must degrade, not propagate")
	assert.Equal(t, 2, q.Difficulty)
}
