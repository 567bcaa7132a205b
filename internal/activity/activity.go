// Package activity records learner activity (chapter completions, quiz
// scores, study sessions). The dashboard derives streaks and cumulative
// study time from it.
package activity

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what the learner did.
type Kind string

const (
	KindChapterCompleted Kind = "chapter_completed"
	KindQuizScored       Kind = "quiz_scored"
	KindStudySession     Kind = "study_session"
)

// Entry is a single activity record.
type Entry struct {
	ID        string        `json:"id"`
	LearnerID string        `json:"learner_id"`
	Kind      Kind          `json:"kind"`
	TopicID   string        `json:"topic_id,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	At        time.Time     `json:"at"`
}

// Recorder appends activity entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Source returns a learner's activity ordered by time, oldest first.
type Source interface {
	Entries(ctx context.Context, learnerID string) ([]Entry, error)
}

// Log is both a Recorder and a Source.
type Log interface {
	Recorder
	Source
}

// NopRecorder ignores all entries.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) error {
	return nil
}

// prepare validates an entry and fills its ID and timestamp.
func prepare(entry Entry) (Entry, error) {
	if entry.LearnerID == "" {
		return Entry{}, fmt.Errorf("learner_id is required")
	}
	if entry.Kind == "" {
		return Entry{}, fmt.Errorf("kind is required")
	}
	if entry.Duration < 0 {
		return Entry{}, fmt.Errorf("duration must be non-negative, got %v", entry.Duration)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	return entry, nil
}

// MemoryLog keeps activity in memory, for tests and single-process deployments.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		entries: make(map[string][]Entry),
	}
}

func (l *MemoryLog) Record(_ context.Context, entry Entry) error {
	entry, err := prepare(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.entries[entry.LearnerID] = append(l.entries[entry.LearnerID], entry)
	l.mu.Unlock()

	return nil
}

func (l *MemoryLog) Entries(_ context.Context, learnerID string) ([]Entry, error) {
	l.mu.RLock()
	out := slices.Clone(l.entries[learnerID])
	l.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Entry) int { return a.At.Compare(b.At) })
	return out, nil
}

// StudyTime sums the durations of the entries.
func StudyTime(entries []Entry) time.Duration {
	var total time.Duration
	for _, e := range entries {
		total += e.Duration
	}
	return total
}

// Timestamps returns the At field of every entry.
func Timestamps(entries []Entry) []time.Time {
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.At
	}
	return out
}
