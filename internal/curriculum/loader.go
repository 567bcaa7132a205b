package curriculum

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads every topic YAML file under rootDir, in lexical path order, and
// builds a validated Catalog. Teaching notes in a sibling "<name>.teaching.md"
// file are attached to the topic. Files without an "id" key are not topics
// and are skipped.
func Load(rootDir string) (*Catalog, error) {
	var topics []Topic

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTopicFile(path) {
			return nil
		}

		topic, ok, err := loadTopic(path)
		if err != nil {
			return err
		}
		if !ok {
			slog.Debug("skipping non-topic YAML", "path", path)
			return nil
		}
		topics = append(topics, topic)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	catalog, err := NewCatalog(topics)
	if err != nil {
		return nil, err
	}

	slog.Info("curriculum loaded", "topics", catalog.Len(), "chapters", catalog.TotalChapters())
	return catalog, nil
}

func isTopicFile(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

func loadTopic(path string) (Topic, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topic{}, false, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Topic{}, false, fmt.Errorf("%s: %w: %v", path, ErrInvalidCatalog, err)
	}
	// Documents without an id (track indexes, notes) are not topics.
	if _, ok := doc["id"]; !ok {
		return Topic{}, false, nil
	}
	if err := validateTopicDocument(doc); err != nil {
		return Topic{}, false, fmt.Errorf("%s: %w", path, err)
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		return Topic{}, false, fmt.Errorf("%s: %w: %v", path, ErrInvalidCatalog, err)
	}

	notesPath := strings.TrimSuffix(strings.TrimSuffix(path, ".yaml"), ".yml") + ".teaching.md"
	if notes, err := os.ReadFile(notesPath); err == nil {
		topic.TeachingNotes = string(notes)
	}

	return topic, true, nil
}
