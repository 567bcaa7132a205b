// Package dashboard aggregates a learner's progress, classroom enrollments
// and activity into one summary. Enrollment and activity lookups are
// optional; when they fail the summary is degraded, not an error.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-progress/internal/activity"
	"github.com/p-n-ai/pai-progress/internal/classroom"
	"github.com/p-n-ai/pai-progress/internal/collab"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

const defaultCollaboratorTimeout = 2 * time.Second

// Snapshot is the dashboard view of one learner.
type Snapshot struct {
	LearnerID         string                `json:"learner_id"`
	Streak            int                   `json:"streak"`
	StudyTime         time.Duration         `json:"-"`
	StudyMinutes      int                   `json:"study_time_minutes"`
	CompletedChapters int                   `json:"completed_chapters"`
	TotalChapters     int                   `json:"total_chapters"`
	MasteredTopics    int                   `json:"mastered_topics"`
	Classrooms        []classroom.Classroom `json:"classrooms"`
	LastActive        *time.Time            `json:"last_active,omitempty"`
	Degraded          []string              `json:"degraded,omitempty"`
}

// ProgressSource provides progress snapshots.
type ProgressSource interface {
	ProgressOf(ctx context.Context, learnerID string) (progress.Snapshot, error)
}

// Config holds dependencies for the Aggregator.
type Config struct {
	Catalog           *curriculum.Catalog
	Progress          ProgressSource
	Classrooms        classroom.Registry
	Activity          activity.Source
	Timeout           time.Duration
	Location          *time.Location
	MasteredThreshold float64
}

// Aggregator builds dashboard snapshots.
type Aggregator struct {
	catalog    *curriculum.Catalog
	progress   ProgressSource
	classrooms classroom.Registry
	activity   activity.Source
	timeout    time.Duration
	loc        *time.Location
	mastered   float64
}

// NewAggregator creates an Aggregator. Nil collaborators behave as if the
// learner had no enrollments or activity.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCollaboratorTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MasteredThreshold <= 0 {
		cfg.MasteredThreshold = 0.95
	}
	return &Aggregator{
		catalog:    cfg.Catalog,
		progress:   cfg.Progress,
		classrooms: cfg.Classrooms,
		activity:   cfg.Activity,
		timeout:    cfg.Timeout,
		loc:        cfg.Location,
		mastered:   cfg.MasteredThreshold,
	}
}

// Dashboard returns the learner's summary. Only progress failures (including
// an invalid learner id) are returned as errors.
func (a *Aggregator) Dashboard(ctx context.Context, learnerID string) (Snapshot, error) {
	prog, err := a.progress.ProgressOf(ctx, learnerID)
	if err != nil {
		return Snapshot{}, err
	}
	learnerID = prog.LearnerID

	snap := Snapshot{
		LearnerID:         learnerID,
		CompletedChapters: prog.CompletedChapters,
		TotalChapters:     a.catalog.TotalChapters(),
		Classrooms:        []classroom.Classroom{},
	}
	for _, tp := range prog.Topics {
		if tp.Score >= a.mastered {
			snap.MasteredTopics++
		}
	}

	if a.classrooms != nil {
		rooms, err := collab.Call(ctx, "classroom registry", a.timeout, func(ctx context.Context) ([]classroom.Classroom, error) {
			return a.classrooms.Classrooms(ctx, learnerID)
		})
		if err != nil {
			slog.Warn("dashboard classrooms degraded", "learner_id", learnerID, "error", err)
			snap.Degraded = append(snap.Degraded, "classrooms")
		} else if rooms != nil {
			snap.Classrooms = rooms
		}
	}

	if a.activity != nil {
		entries, err := collab.Call(ctx, "activity log", a.timeout, func(ctx context.Context) ([]activity.Entry, error) {
			return a.activity.Entries(ctx, learnerID)
		})
		if err != nil {
			slog.Warn("dashboard activity degraded", "learner_id", learnerID, "error", err)
			snap.Degraded = append(snap.Degraded, "activity")
			entries = nil
		}
		a.applyActivity(&snap, entries)
	}

	return snap, nil
}

func (a *Aggregator) applyActivity(snap *Snapshot, entries []activity.Entry) {
	if len(entries) == 0 {
		return
	}
	times := activity.Timestamps(entries)
	snap.Streak = Streak(times, a.loc)
	snap.StudyTime = activity.StudyTime(entries)
	snap.StudyMinutes = int(snap.StudyTime / time.Minute)

	last := times[0]
	for _, t := range times[1:] {
		if t.After(last) {
			last = t
		}
	}
	last = last.In(a.loc)
	snap.LastActive = &last
}
