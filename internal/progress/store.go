package progress

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// Record is a learner's stored progress.
type Record struct {
	LearnerID string
	Scores    map[string]float64  // topic id -> best mastery score
	Completed map[string][]string // topic id -> completed chapter ids, sorted
	UpdatedAt time.Time
}

// Score returns the stored mastery score for a topic, 0 when never attempted.
func (r Record) Score(topicID string) float64 {
	return r.Scores[topicID]
}

// Store persists learner progress. Implementations must apply MergeScore and
// CompleteChapter atomically per learner.
type Store interface {
	// MergeScore stores max(existing, score) and returns the stored value.
	MergeScore(ctx context.Context, learnerID, topicID string, score float64) (float64, error)
	// CompleteChapter marks a chapter complete. It reports whether the chapter
	// was newly completed; a repeat is a successful no-op.
	CompleteChapter(ctx context.Context, learnerID, topicID, chapterID string) (bool, error)
	// Record returns a consistent copy of a learner's progress. An unknown
	// learner yields an empty record, not an error.
	Record(ctx context.Context, learnerID string) (Record, error)
}

// learnerState is one learner's record guarded by its own lock, so writers
// for different learners never contend.
type learnerState struct {
	mu        sync.RWMutex
	scores    map[string]float64
	completed map[string]map[string]struct{}
	updatedAt time.Time
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	learners map[string]*learnerState
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		learners: make(map[string]*learnerState),
	}
}

// learner returns the state for id, creating it when create is set.
func (s *MemoryStore) learner(id string, create bool) *learnerState {
	s.mu.RLock()
	ls, ok := s.learners[id]
	s.mu.RUnlock()
	if ok || !create {
		return ls
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.learners[id]; ok {
		return ls
	}
	ls = &learnerState{
		scores:    make(map[string]float64),
		completed: make(map[string]map[string]struct{}),
	}
	s.learners[id] = ls
	return ls
}

func (s *MemoryStore) MergeScore(_ context.Context, learnerID, topicID string, score float64) (float64, error) {
	ls := s.learner(learnerID, true)

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if existing, ok := ls.scores[topicID]; ok && existing >= score {
		return existing, nil
	}
	ls.scores[topicID] = score
	ls.updatedAt = time.Now()
	return score, nil
}

func (s *MemoryStore) CompleteChapter(_ context.Context, learnerID, topicID, chapterID string) (bool, error) {
	ls := s.learner(learnerID, true)

	ls.mu.Lock()
	defer ls.mu.Unlock()

	chapters, ok := ls.completed[topicID]
	if !ok {
		chapters = make(map[string]struct{})
		ls.completed[topicID] = chapters
	}
	if _, done := chapters[chapterID]; done {
		return false, nil
	}
	chapters[chapterID] = struct{}{}
	ls.updatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Record(_ context.Context, learnerID string) (Record, error) {
	rec := Record{
		LearnerID: learnerID,
		Scores:    map[string]float64{},
		Completed: map[string][]string{},
	}

	ls := s.learner(learnerID, false)
	if ls == nil {
		return rec, nil
	}

	ls.mu.RLock()
	defer ls.mu.RUnlock()

	rec.Scores = maps.Clone(ls.scores)
	for topicID, chapters := range ls.completed {
		rec.Completed[topicID] = slices.Sorted(maps.Keys(chapters))
	}
	rec.UpdatedAt = ls.updatedAt
	return rec, nil
}
