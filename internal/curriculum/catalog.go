package curriculum

import (
	"fmt"
	"slices"
	"strings"
)

// Catalog is the read-only registry of topics, their prerequisite edges and
// chapters. It is safe for concurrent use because nothing mutates it after
// NewCatalog returns.
type Catalog struct {
	topics        []Topic
	index         map[string]int
	chapters      map[string][]Chapter
	totalChapters int
}

// NewCatalog validates the topics and builds a catalog. Registration order is
// the order of the slice. It fails with ErrCyclicPrerequisite when required
// prerequisites form a cycle and with ErrInvalidCatalog for any other
// structural problem.
func NewCatalog(topics []Topic) (*Catalog, error) {
	c := &Catalog{
		topics:   make([]Topic, 0, len(topics)),
		index:    make(map[string]int, len(topics)),
		chapters: make(map[string][]Chapter, len(topics)),
	}

	var errs []string
	for _, t := range topics {
		switch {
		case t.ID == "":
			errs = append(errs, "topic with empty id")
			continue
		case t.Difficulty < 1:
			errs = append(errs, fmt.Sprintf("topic %q: difficulty must be >= 1, got %d", t.ID, t.Difficulty))
		}
		if _, dup := c.index[t.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate topic id: %q", t.ID))
			continue
		}

		t.Prerequisites.Required = slices.Clone(t.Prerequisites.Required)
		t.Prerequisites.Recommended = slices.Clone(t.Prerequisites.Recommended)
		chapters, chErrs := normalizeChapters(t.ID, t.Chapters)
		errs = append(errs, chErrs...)
		t.Chapters = nil

		c.index[t.ID] = len(c.topics)
		c.topics = append(c.topics, t)
		c.chapters[t.ID] = chapters
		c.totalChapters += len(chapters)
	}

	for _, t := range c.topics {
		for _, id := range t.Prerequisites.Required {
			if _, ok := c.index[id]; !ok {
				errs = append(errs, fmt.Sprintf("topic %q references nonexistent prerequisite %q", t.ID, id))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w:\n  %s", ErrInvalidCatalog, strings.Join(errs, "\n  "))
	}

	if cycle := c.findCycle(); cycle != nil {
		return nil, fmt.Errorf("%w: %s", ErrCyclicPrerequisite, strings.Join(cycle, " -> "))
	}

	return c, nil
}

func normalizeChapters(topicID string, chapters []Chapter) ([]Chapter, []string) {
	var errs []string
	out := make([]Chapter, 0, len(chapters))
	ids := make(map[string]bool, len(chapters))
	ordinals := make(map[int]bool, len(chapters))

	for _, ch := range chapters {
		if ch.ID == "" {
			errs = append(errs, fmt.Sprintf("topic %q: chapter with empty id", topicID))
			continue
		}
		if ids[ch.ID] {
			errs = append(errs, fmt.Sprintf("topic %q: duplicate chapter id %q", topicID, ch.ID))
			continue
		}
		if ordinals[ch.Ordinal] {
			errs = append(errs, fmt.Sprintf("topic %q: duplicate chapter ordinal %d", topicID, ch.Ordinal))
			continue
		}
		ids[ch.ID] = true
		ordinals[ch.Ordinal] = true
		ch.TopicID = topicID
		out = append(out, ch)
	}

	slices.SortFunc(out, func(a, b Chapter) int { return a.Ordinal - b.Ordinal })
	for i, ch := range out {
		if ch.Ordinal != i+1 {
			errs = append(errs, fmt.Sprintf("topic %q: chapter ordinals must be dense from 1, found %d at position %d", topicID, ch.Ordinal, i+1))
			break
		}
	}
	return out, errs
}

const (
	unvisited = iota
	inProgress
	done
)

// findCycle runs a depth-first traversal over required prerequisites with
// three-colour marking. It returns the offending path, or nil for a DAG.
func (c *Catalog) findCycle() []string {
	color := make([]int, len(c.topics))
	var stack []string

	var visit func(i int) []string
	visit = func(i int) []string {
		color[i] = inProgress
		stack = append(stack, c.topics[i].ID)
		for _, id := range c.topics[i].Prerequisites.Required {
			j := c.index[id]
			switch color[j] {
			case inProgress:
				start := slices.Index(stack, id)
				return append(slices.Clone(stack[start:]), id)
			case unvisited:
				if cycle := visit(j); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = done
		return nil
	}

	for i := range c.topics {
		if color[i] == unvisited {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ListTopics returns all topics in registration order.
func (c *Catalog) ListTopics() []Topic {
	out := make([]Topic, len(c.topics))
	for i, t := range c.topics {
		out[i] = cloneTopic(t)
	}
	return out
}

// Topic returns a topic by ID.
func (c *Catalog) Topic(id string) (Topic, error) {
	i, ok := c.index[id]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %s", ErrUnknownTopic, id)
	}
	return cloneTopic(c.topics[i]), nil
}

// Lookup resolves a topic by ID, falling back to a case-insensitive match on
// its display name.
func (c *Catalog) Lookup(idOrName string) (Topic, error) {
	if i, ok := c.index[idOrName]; ok {
		return cloneTopic(c.topics[i]), nil
	}
	for _, t := range c.topics {
		if strings.EqualFold(t.DisplayName(), strings.TrimSpace(idOrName)) {
			return cloneTopic(t), nil
		}
	}
	return Topic{}, fmt.Errorf("%w: %s", ErrUnknownTopic, idOrName)
}

// PrerequisitesOf returns the required prerequisites of a topic.
func (c *Catalog) PrerequisitesOf(id string) ([]string, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, id)
	}
	return slices.Clone(c.topics[i].Prerequisites.Required), nil
}

// ChaptersOf returns the chapters of a topic ordered by ordinal. A topic
// without chapters, or an unregistered one, yields an empty slice.
func (c *Catalog) ChaptersOf(id string) []Chapter {
	return slices.Clone(c.chapters[id])
}

// Chapter resolves a chapter within a topic.
func (c *Catalog) Chapter(topicID, chapterID string) (Chapter, error) {
	if _, ok := c.index[topicID]; !ok {
		return Chapter{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}
	for _, ch := range c.chapters[topicID] {
		if ch.ID == chapterID {
			return ch, nil
		}
	}
	return Chapter{}, fmt.Errorf("%w: %s/%s", ErrUnknownChapter, topicID, chapterID)
}

// TotalChapters returns the number of chapters across all topics.
func (c *Catalog) TotalChapters() int {
	return c.totalChapters
}

// Len returns the number of topics.
func (c *Catalog) Len() int {
	return len(c.topics)
}

func cloneTopic(t Topic) Topic {
	t.Prerequisites.Required = slices.Clone(t.Prerequisites.Required)
	t.Prerequisites.Recommended = slices.Clone(t.Prerequisites.Recommended)
	return t
}
