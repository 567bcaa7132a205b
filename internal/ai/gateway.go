// Package ai provides a provider-agnostic completion gateway used to draft
// quiz content. Every provider speaks the OpenAI chat completions protocol.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyRequest is returned for a request with no messages.
var ErrEmptyRequest = errors.New("completion request has no messages")

// TaskType labels a request in logs.
type TaskType int

const (
	TaskUnspecified TaskType = iota
	TaskQuiz
)

func (t TaskType) String() string {
	switch t {
	case TaskQuiz:
		return "quiz"
	default:
		return "unspecified"
	}
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// CompletionRequest is the input to a completion. An empty Model lets the
// provider choose its default.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"-"`
}

func (r CompletionRequest) validate() error {
	if len(r.Messages) == 0 {
		return ErrEmptyRequest
	}
	return nil
}

// CompletionResponse is the provider's answer with token accounting.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is a single completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}
