package ai_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/ai"
)

func quizRequest() ai.CompletionRequest {
	return ai.CompletionRequest{
		Messages: []ai.Message{ai.UserMessage("hi")},
		Task:     ai.TaskQuiz,
	}
}

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	router.Register("openai", ai.NewMockProvider("Hello!"))

	resp, err := router.Complete(context.Background(), quizRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()

	failing := &ai.MockProvider{Err: errors.New("rate limited")}
	fallback := ai.NewMockProvider("Fallback response")

	router.Register("openai", failing)
	router.Register("ollama", fallback)

	resp, err := router.Complete(context.Background(), quizRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Fallback response")
	}
	if failing.Calls() != 1 {
		t.Errorf("failing provider calls = %d, want 1", failing.Calls())
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()

	router.Register("openai", &ai.MockProvider{Err: errors.New("fail 1")})
	router.Register("ollama", &ai.MockProvider{Err: errors.New("fail 2")})

	if _, err := router.Complete(context.Background(), quizRequest()); err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	_, err := router.Complete(context.Background(), quizRequest())
	if !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("Complete() error = %v, want ErrNoProvider", err)
	}
}

func TestRouter_CancelledContext(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("never")
	router.Register("mock", mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := router.Complete(ctx, quizRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("provider called %d times after cancellation", mock.Calls())
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register("mock", ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}

func TestRouter_FallbackOrder(t *testing.T) {
	router := ai.NewRouter()

	router.Register("first", ai.NewMockProvider("first"))
	router.Register("second", ai.NewMockProvider("second"))
	router.Register("first", ai.NewMockProvider("first again"))

	if got := router.Providers(); !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("Providers() = %v, want [first second]", got)
	}

	resp, err := router.Complete(context.Background(), quizRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first again" {
		t.Errorf("Content = %q, want %q (first registered should be tried first)", resp.Content, "first again")
	}
}

func TestRouter_EmptyRequest(t *testing.T) {
	router := ai.NewRouter()
	mock := ai.NewMockProvider("unused")
	router.Register("mock", mock)

	if _, err := router.Complete(context.Background(), ai.CompletionRequest{Task: ai.TaskQuiz}); !errors.Is(err, ai.ErrEmptyRequest) {
		t.Fatalf("Complete() error = %v, want ErrEmptyRequest", err)
	}
	if mock.Calls() != 0 {
		t.Errorf("provider called %d times for an empty request", mock.Calls())
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		providers []*ai.MockProvider
		wantErr   bool
	}{
		{"none registered", nil, true},
		{"all healthy", []*ai.MockProvider{ai.NewMockProvider("a")}, false},
		{"fallback healthy", []*ai.MockProvider{{Err: errors.New("down")}, ai.NewMockProvider("b")}, false},
		{"all down", []*ai.MockProvider{{Err: errors.New("down")}, {Err: errors.New("also down")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := ai.NewRouter()
			for i, p := range tt.providers {
				router.Register(string(rune('a'+i)), p)
			}
			if err := router.HealthCheck(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
