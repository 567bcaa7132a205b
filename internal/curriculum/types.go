package curriculum

// Topic represents a curriculum topic loaded from YAML.
type Topic struct {
	ID            string        `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Description   string        `yaml:"description" json:"description"`
	Difficulty    int           `yaml:"difficulty" json:"difficulty"`
	Prerequisites Prerequisites `yaml:"prerequisites" json:"prerequisites"`
	Chapters      []Chapter     `yaml:"chapters" json:"-"`
	TeachingNotes string        `yaml:"-" json:"-"`
}

// Prerequisites holds required and recommended prerequisites.
// Only Required edges gate unlocking; Recommended is informational.
type Prerequisites struct {
	Required    []string `yaml:"required" json:"required"`
	Recommended []string `yaml:"recommended,omitempty" json:"recommended,omitempty"`
}

// Chapter is an ordered unit of content within a topic.
type Chapter struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	TopicID string `yaml:"-" json:"topic_id"`
	Ordinal int    `yaml:"ordinal" json:"ordinal"`
}

// DisplayName returns Name, falling back to ID.
func (t Topic) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
