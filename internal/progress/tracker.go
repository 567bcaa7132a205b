// Package progress owns per-learner mastery scores and chapter completion.
// Tracker validates requests against the curriculum catalog and is the only
// writer of learner progress.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-progress/internal/activity"
	"github.com/p-n-ai/pai-progress/internal/collab"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
)

var (
	// ErrInvalidScore is returned for scores outside [0, 1].
	ErrInvalidScore = errors.New("invalid score")
	// ErrInvalidLearner is returned for an empty learner identifier.
	ErrInvalidLearner = errors.New("invalid learner id")
)

const defaultActivityTimeout = 2 * time.Second

// NormalizeLearnerID trims surrounding space and applies Unicode NFC so the
// same learner typed on different keyboards maps to one record.
func NormalizeLearnerID(id string) (string, error) {
	id = norm.NFC.String(strings.TrimSpace(id))
	if id == "" {
		return "", ErrInvalidLearner
	}
	return id, nil
}

// TopicProgress is one topic's line in a progress snapshot.
type TopicProgress struct {
	TopicID           string  `json:"topic_id"`
	Name              string  `json:"topic"`
	Difficulty        int     `json:"difficulty"`
	Score             float64 `json:"score"`
	CompletedChapters int     `json:"completed_chapters"`
	TotalChapters     int     `json:"total_chapters"`
	ChapterRatio      float64 `json:"chapter_ratio"`
}

// Snapshot is a learner's progress over every catalog topic.
type Snapshot struct {
	LearnerID         string          `json:"username"`
	Topics            []TopicProgress `json:"progress"`
	CompletedChapters int             `json:"completed_chapters"`
	TotalChapters     int             `json:"total_chapters"`
}

// Score returns the mastery score recorded for a topic in the snapshot.
func (s Snapshot) Score(topicID string) float64 {
	for _, tp := range s.Topics {
		if tp.TopicID == topicID {
			return tp.Score
		}
	}
	return 0
}

// TrackerConfig holds dependencies for the Tracker.
type TrackerConfig struct {
	Catalog         *curriculum.Catalog
	Store           Store
	Activity        activity.Recorder
	ActivityTimeout time.Duration
	Now             func() time.Time
}

// Tracker records learner progress and builds progress snapshots.
type Tracker struct {
	catalog         *curriculum.Catalog
	store           Store
	activity        activity.Recorder
	activityTimeout time.Duration
	now             func() time.Time
}

// NewTracker creates a Tracker. A nil Store defaults to a MemoryStore and a
// nil activity Recorder discards activity.
func NewTracker(cfg TrackerConfig) *Tracker {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	rec := cfg.Activity
	if rec == nil {
		rec = activity.NopRecorder{}
	}
	timeout := cfg.ActivityTimeout
	if timeout == 0 {
		timeout = defaultActivityTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		catalog:         cfg.Catalog,
		store:           store,
		activity:        rec,
		activityTimeout: timeout,
		now:             now,
	}
}

// RecordChapterCompletion marks a chapter complete. Completing an already
// completed chapter succeeds without changing anything.
func (t *Tracker) RecordChapterCompletion(ctx context.Context, learnerID, topicID, chapterID string) error {
	learnerID, err := NormalizeLearnerID(learnerID)
	if err != nil {
		return err
	}
	if _, err := t.catalog.Chapter(topicID, chapterID); err != nil {
		return err
	}

	added, err := t.store.CompleteChapter(ctx, learnerID, topicID, chapterID)
	if err != nil {
		return fmt.Errorf("record chapter completion: %w", err)
	}

	slog.Debug("chapter completion recorded",
		"learner_id", learnerID,
		"topic_id", topicID,
		"chapter_id", chapterID,
		"new", added,
	)
	t.logActivity(ctx, activity.Entry{
		LearnerID: learnerID,
		Kind:      activity.KindChapterCompleted,
		TopicID:   topicID,
	})
	return nil
}

// RecordQuizScore validates score and merges it into the learner's best
// score for the topic. It returns the stored (best) score.
func (t *Tracker) RecordQuizScore(ctx context.Context, learnerID, topicID string, score float64) (float64, error) {
	learnerID, err := NormalizeLearnerID(learnerID)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v not in [0, 1]", ErrInvalidScore, score)
	}
	if _, err := t.catalog.Topic(topicID); err != nil {
		return 0, err
	}

	stored, err := t.store.MergeScore(ctx, learnerID, topicID, score)
	if err != nil {
		return 0, fmt.Errorf("record quiz score: %w", err)
	}

	slog.Debug("quiz score recorded",
		"learner_id", learnerID,
		"topic_id", topicID,
		"score", score,
		"stored", stored,
	)
	t.logActivity(ctx, activity.Entry{
		LearnerID: learnerID,
		Kind:      activity.KindQuizScored,
		TopicID:   topicID,
	})
	return stored, nil
}

// RecordStudySession logs study time. topicID is optional.
func (t *Tracker) RecordStudySession(ctx context.Context, learnerID, topicID string, d time.Duration) error {
	learnerID, err := NormalizeLearnerID(learnerID)
	if err != nil {
		return err
	}
	if topicID != "" {
		if _, err := t.catalog.Topic(topicID); err != nil {
			return err
		}
	}
	if d <= 0 {
		return fmt.Errorf("study duration must be positive, got %v", d)
	}

	_, err = collab.Call(ctx, "activity log", t.activityTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.activity.Record(ctx, activity.Entry{
			LearnerID: learnerID,
			Kind:      activity.KindStudySession,
			TopicID:   topicID,
			Duration:  d,
			At:        t.now(),
		})
	})
	return err
}

// ProgressOf returns the learner's score and chapter completion for every
// catalog topic, in catalog order. A learner with no record gets zeros.
func (t *Tracker) ProgressOf(ctx context.Context, learnerID string) (Snapshot, error) {
	learnerID, err := NormalizeLearnerID(learnerID)
	if err != nil {
		return Snapshot{}, err
	}

	rec, err := t.store.Record(ctx, learnerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load progress: %w", err)
	}

	topics := t.catalog.ListTopics()
	snap := Snapshot{
		LearnerID: learnerID,
		Topics:    make([]TopicProgress, 0, len(topics)),
	}
	for _, topic := range topics {
		chapters := t.catalog.ChaptersOf(topic.ID)
		done := 0
		for _, id := range rec.Completed[topic.ID] {
			if _, err := t.catalog.Chapter(topic.ID, id); err == nil {
				done++
			}
		}

		tp := TopicProgress{
			TopicID:           topic.ID,
			Name:              topic.DisplayName(),
			Difficulty:        topic.Difficulty,
			Score:             rec.Score(topic.ID),
			CompletedChapters: done,
			TotalChapters:     len(chapters),
		}
		if tp.TotalChapters > 0 {
			tp.ChapterRatio = float64(done) / float64(tp.TotalChapters)
		}
		snap.Topics = append(snap.Topics, tp)
		snap.CompletedChapters += done
		snap.TotalChapters += tp.TotalChapters
	}

	return snap, nil
}

// logActivity records an entry; failures are logged, never returned.
func (t *Tracker) logActivity(ctx context.Context, entry activity.Entry) {
	entry.At = t.now()
	_, err := collab.Call(ctx, "activity log", t.activityTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.activity.Record(ctx, entry)
	})
	if err != nil {
		slog.Warn("failed to record activity",
			"learner_id", entry.LearnerID,
			"kind", entry.Kind,
			"error", err,
		)
	}
}
