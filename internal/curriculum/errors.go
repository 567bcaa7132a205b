package curriculum

import "errors"

var (
	// ErrUnknownTopic is returned when a topic ID is not registered in the catalog.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrUnknownChapter is returned when a chapter ID does not belong to the topic.
	ErrUnknownChapter = errors.New("unknown chapter")
	// ErrCyclicPrerequisite is returned at load time when prerequisite edges form a cycle.
	ErrCyclicPrerequisite = errors.New("cyclic prerequisite")
	// ErrInvalidCatalog covers every other structural problem found at load time.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
