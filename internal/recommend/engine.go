// Package recommend decides which topics a learner can study next. It is a
// pure function of the curriculum catalog and a progress snapshot; mastery
// comes from quiz scores only, chapter completion never unlocks a topic.
package recommend

import (
	"cmp"
	"context"
	"slices"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

const (
	// DefaultUnlockThreshold is the prerequisite score needed to unlock a topic.
	DefaultUnlockThreshold = 0.6
	// DefaultMasteredThreshold is the score at which a topic counts as fully mastered.
	DefaultMasteredThreshold = 0.95
)

// Thresholds configures the unlock and mastery cutoffs.
type Thresholds struct {
	Unlock   float64
	Mastered float64
}

// DefaultThresholds returns the documented default cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Unlock: DefaultUnlockThreshold, Mastered: DefaultMasteredThreshold}
}

// LockedTopic is a topic with at least one unmet prerequisite.
type LockedTopic struct {
	Topic   curriculum.Topic `json:"topic"`
	Missing []string         `json:"missing_prerequisites"`
}

// Recommendation partitions the catalog for one learner. Every topic is in
// exactly one of the three lists.
type Recommendation struct {
	LearnerID string             `json:"learner_id"`
	Unlocked  []curriculum.Topic `json:"unlocked"`
	Locked    []LockedTopic      `json:"locked"`
	Mastered  []curriculum.Topic `json:"mastered"`
}

// ProgressSource provides progress snapshots.
type ProgressSource interface {
	ProgressOf(ctx context.Context, learnerID string) (progress.Snapshot, error)
}

// Engine computes recommendations from live progress.
type Engine struct {
	catalog    *curriculum.Catalog
	progress   ProgressSource
	thresholds Thresholds
}

// NewEngine creates an Engine. Zero thresholds fall back to the defaults.
func NewEngine(catalog *curriculum.Catalog, source ProgressSource, th Thresholds) *Engine {
	if th.Unlock == 0 {
		th.Unlock = DefaultUnlockThreshold
	}
	if th.Mastered == 0 {
		th.Mastered = DefaultMasteredThreshold
	}
	return &Engine{catalog: catalog, progress: source, thresholds: th}
}

// Recommend returns the learner's unlocked, locked and mastered topics.
func (e *Engine) Recommend(ctx context.Context, learnerID string) (Recommendation, error) {
	snap, err := e.progress.ProgressOf(ctx, learnerID)
	if err != nil {
		return Recommendation{}, err
	}
	return Compute(e.catalog, snap, e.thresholds), nil
}

// Compute partitions the catalog given a progress snapshot.
//
// A topic whose required prerequisites all score at least th.Unlock is
// unlocked unless its own score reaches th.Mastered, in which case it is
// mastered. Any unmet prerequisite locks the topic regardless of its own
// score. Each list is ordered by difficulty tier, then catalog order.
func Compute(catalog *curriculum.Catalog, snap progress.Snapshot, th Thresholds) Recommendation {
	rec := Recommendation{
		LearnerID: snap.LearnerID,
		Unlocked:  []curriculum.Topic{},
		Locked:    []LockedTopic{},
		Mastered:  []curriculum.Topic{},
	}

	for _, topic := range catalog.ListTopics() {
		var missing []string
		for _, id := range topic.Prerequisites.Required {
			if snap.Score(id) < th.Unlock {
				missing = append(missing, id)
			}
		}

		switch {
		case len(missing) > 0:
			rec.Locked = append(rec.Locked, LockedTopic{Topic: topic, Missing: missing})
		case snap.Score(topic.ID) >= th.Mastered:
			rec.Mastered = append(rec.Mastered, topic)
		default:
			rec.Unlocked = append(rec.Unlocked, topic)
		}
	}

	byTier := func(a, b curriculum.Topic) int { return cmp.Compare(a.Difficulty, b.Difficulty) }
	slices.SortStableFunc(rec.Unlocked, byTier)
	slices.SortStableFunc(rec.Mastered, byTier)
	slices.SortStableFunc(rec.Locked, func(a, b LockedTopic) int { return byTier(a.Topic, b.Topic) })

	return rec
}
