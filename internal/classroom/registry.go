// Package classroom resolves which classrooms a learner is enrolled in. It is
// an optional collaborator of the dashboard: callers treat failures as an
// empty enrollment list.
package classroom

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrInvalidClassroom is returned when enrolling into a classroom without an id.
var ErrInvalidClassroom = errors.New("invalid classroom")

// Classroom is a summary of one enrolled classroom.
type Classroom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry looks up a learner's classrooms.
type Registry interface {
	Classrooms(ctx context.Context, learnerID string) ([]Classroom, error)
}

// Enroller adds learners to classrooms.
type Enroller interface {
	Enroll(ctx context.Context, learnerID string, room Classroom) error
}

// Directory is a registry that also accepts enrollments.
type Directory interface {
	Registry
	Enroller
}

// MemoryRegistry is an in-memory Directory.
type MemoryRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Classroom // learner -> classroom id -> classroom
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{rooms: make(map[string]map[string]Classroom)}
}

// Enroll adds the learner to a classroom. Re-enrolling updates the name.
func (r *MemoryRegistry) Enroll(_ context.Context, learnerID string, room Classroom) error {
	if err := validate(room); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.rooms[learnerID]
	if !ok {
		byID = make(map[string]Classroom)
		r.rooms[learnerID] = byID
	}
	byID[room.ID] = room
	return nil
}

// Classrooms returns the learner's classrooms sorted by name.
func (r *MemoryRegistry) Classrooms(_ context.Context, learnerID string) ([]Classroom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Classroom, 0, len(r.rooms[learnerID]))
	for _, room := range r.rooms[learnerID] {
		out = append(out, room)
	}
	sortClassrooms(out)
	return out, nil
}

func validate(room Classroom) error {
	if strings.TrimSpace(room.ID) == "" {
		return ErrInvalidClassroom
	}
	return nil
}

func sortClassrooms(rooms []Classroom) {
	slices.SortFunc(rooms, func(a, b Classroom) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}
