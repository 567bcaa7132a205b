package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-progress/internal/activity"
	"github.com/p-n-ai/pai-progress/internal/classroom"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/dashboard"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

func testCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	catalog, err := curriculum.NewCatalog([]curriculum.Topic{
		{ID: "basics", Difficulty: 1, Chapters: []curriculum.Chapter{
			{ID: "nodes", Ordinal: 1}, {ID: "edges", Ordinal: 2},
		}},
		{ID: "walkers", Difficulty: 2,
			Prerequisites: curriculum.Prerequisites{Required: []string{"basics"}},
			Chapters:      []curriculum.Chapter{{ID: "spawn", Ordinal: 1}},
		},
	})
	require.NoError(t, err)
	return catalog
}

type brokenRegistry struct{}

func (brokenRegistry) Classrooms(context.Context, string) ([]classroom.Classroom, error) {
	return nil, errors.New("registry down")
}

type panickingRegistry struct{}

func (panickingRegistry) Classrooms(context.Context, string) ([]classroom.Classroom, error) {
	var byID map[string]classroom.Classroom
	byID["c1"] = classroom.Classroom{ID: "c1"}
	return nil, nil
}

type hangingSource struct{}

func (hangingSource) Entries(ctx context.Context, _ string) ([]activity.Entry, error) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return nil, ctx.Err()
}

type fixture struct {
	catalog *curriculum.Catalog
	tracker *progress.Tracker
	log     *activity.MemoryLog
	rooms   *classroom.MemoryRegistry
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		catalog: testCatalog(t),
		log:     activity.NewMemoryLog(),
		rooms:   classroom.NewMemoryRegistry(),
		now:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.tracker = progress.NewTracker(progress.TrackerConfig{
		Catalog:  f.catalog,
		Activity: f.log,
		Now:      func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) aggregator(cfg dashboard.Config) *dashboard.Aggregator {
	cfg.Catalog = f.catalog
	cfg.Progress = f.tracker
	return dashboard.NewAggregator(cfg)
}

func TestDashboard_Ghost(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator(dashboard.Config{Classrooms: f.rooms, Activity: f.log})

	snap, err := agg.Dashboard(context.Background(), "Ghost")
	require.NoError(t, err)

	assert.Equal(t, "Ghost", snap.LearnerID)
	assert.Zero(t, snap.Streak)
	assert.Zero(t, snap.CompletedChapters)
	assert.Equal(t, 3, snap.TotalChapters)
	assert.NotNil(t, snap.Classrooms)
	assert.Empty(t, snap.Classrooms)
	assert.Nil(t, snap.LastActive)
	assert.Empty(t, snap.Degraded)
}

func TestDashboard_ActiveLearner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rooms.Enroll(ctx, "Ada", classroom.Classroom{ID: "c1", Name: "Intro to Jac"}))

	for day := 8; day <= 10; day++ {
		f.now = time.Date(2026, 3, day, 18, 0, 0, 0, time.UTC)
		require.NoError(t, f.tracker.RecordStudySession(ctx, "Ada", "basics", 20*time.Minute))
	}
	require.NoError(t, f.tracker.RecordChapterCompletion(ctx, "Ada", "basics", "nodes"))
	require.NoError(t, f.tracker.RecordChapterCompletion(ctx, "Ada", "basics", "nodes"))
	_, err := f.tracker.RecordQuizScore(ctx, "Ada", "basics", 0.96)
	require.NoError(t, err)

	agg := f.aggregator(dashboard.Config{Classrooms: f.rooms, Activity: f.log})
	snap, err := agg.Dashboard(ctx, "Ada")
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Streak)
	assert.Equal(t, time.Hour, snap.StudyTime)
	assert.Equal(t, 60, snap.StudyMinutes)
	assert.Equal(t, 1, snap.CompletedChapters)
	assert.Equal(t, 3, snap.TotalChapters)
	assert.Equal(t, 1, snap.MasteredTopics)
	assert.Equal(t, []classroom.Classroom{{ID: "c1", Name: "Intro to Jac"}}, snap.Classrooms)
	require.NotNil(t, snap.LastActive)
	assert.True(t, snap.LastActive.Equal(f.now))
}

func TestDashboard_DegradesOnCollaboratorFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tracker.RecordChapterCompletion(ctx, "Ada", "walkers", "spawn"))

	agg := f.aggregator(dashboard.Config{
		Classrooms: brokenRegistry{},
		Activity:   hangingSource{},
		Timeout:    20 * time.Millisecond,
	})

	start := time.Now()
	snap, err := agg.Dashboard(ctx, "Ada")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "a hung collaborator must not hang the dashboard")

	assert.Equal(t, 1, snap.CompletedChapters, "progress still reported")
	assert.Empty(t, snap.Classrooms)
	assert.NotNil(t, snap.Classrooms)
	assert.Zero(t, snap.Streak)
	assert.ElementsMatch(t, []string{"classrooms", "activity"}, snap.Degraded)
}

func TestDashboard_NilCollaborators(t *testing.T) {
	f := newFixture(t)

	snap, err := f.aggregator(dashboard.Config{}).Dashboard(context.Background(), "Ada")
	require.NoError(t, err)
	assert.NotNil(t, snap.Classrooms)
	assert.Zero(t, snap.Streak)
}

func TestDashboard_InvalidLearner(t *testing.T) {
	f := newFixture(t)

	_, err := f.aggregator(dashboard.Config{}).Dashboard(context.Background(), "  ")
	assert.ErrorIs(t, err, progress.ErrInvalidLearner)
}

func TestDashboard_PanickingCollaboratorDegrades(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator(dashboard.Config{Classrooms: panickingRegistry{}, Activity: f.log})

	snap, err := agg.Dashboard(context.Background(), "Ada")
	require.NoError(t, err)
	assert.Empty(t, snap.Classrooms)
	assert.Equal(t, []string{"classrooms"}, snap.Degraded)
}
