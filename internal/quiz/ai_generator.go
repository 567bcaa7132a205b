package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-progress/internal/ai"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

const quizSystemPrompt = `You write short practice quizzes for a programming tutorial platform.

FORMAT:
- Start with a one-line title: "Quiz: <topic>"
- Write exactly three multiple-choice questions
- Each question has options A) to D) on separate lines
- End with an "Answers:" line listing the correct letters

RULES:
- Only ask about material covered by the listed chapters
- Difficulty 1 is recall, 2 is applying a concept, 3 and above combine concepts
- Code snippets must be short and self-contained`

// Completer is the part of the AI gateway the generator needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// AIGenerator drafts quiz text through the AI gateway.
type AIGenerator struct {
	ai        Completer
	catalog   *curriculum.Catalog
	maxTokens int
}

// NewAIGenerator creates a generator backed by an AI completer.
func NewAIGenerator(completer Completer, catalog *curriculum.Catalog) *AIGenerator {
	return &AIGenerator{ai: completer, catalog: catalog, maxTokens: 700}
}

// GenerateQuiz asks the model for a quiz scoped to the topic's chapters.
func (g *AIGenerator) GenerateQuiz(ctx context.Context, topic curriculum.Topic, req Request) (string, error) {
	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			ai.SystemMessage(quizSystemPrompt),
			ai.UserMessage(g.buildPrompt(topic, req)),
		},
		Task:      ai.TaskQuiz,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completing quiz for %s: %w", topic.ID, err)
	}
	return resp.Content, nil
}

func (g *AIGenerator) buildPrompt(topic curriculum.Topic, req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic.DisplayName())
	if topic.Description != "" {
		fmt.Fprintf(&b, "Summary: %s\n", topic.Description)
	}
	fmt.Fprintf(&b, "Difficulty: %d (topic tier %d)\n", req.Difficulty, topic.Difficulty)

	if chapters := g.catalog.ChaptersOf(topic.ID); len(chapters) > 0 {
		b.WriteString("\nChapters:\n")
		for _, ch := range chapters {
			title := ch.Title
			if title == "" {
				title = ch.ID
			}
			fmt.Fprintf(&b, "%d. %s\n", ch.Ordinal, title)
		}
	}

	if notes := strings.TrimSpace(topic.TeachingNotes); notes != "" {
		b.WriteString("\nTeaching notes:\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	return b.String()
}
