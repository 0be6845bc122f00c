package persona

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed blocks/*.md blocks/default.tmpl
var builtin embed.FS

type Topic string

const (
	LifeStory      Topic = "life_story"
	Superpower     Topic = "superpower"
	GrowthAreas    Topic = "growth_areas"
	Misconceptions Topic = "misconceptions"
	Boundaries     Topic = "boundaries"
)

// Topics lists every topic in the order the default block presents them.
var Topics = []Topic{LifeStory, Superpower, GrowthAreas, Misconceptions, Boundaries}

type Rule struct {
	Pattern string
	Topic   Topic
}

// rules is evaluated top to bottom and the first contained pattern wins.
// Reordering entries changes which block a question receives.
var rules = []Rule{
	{"life story", LifeStory},
	{"about your life", LifeStory},
	{"about yourself", LifeStory},
	{"tell me about you", LifeStory},
	{"superpower", Superpower},
	{"best at", Superpower},
	{"greatest strength", Superpower},
	{"areas you'd like to grow", GrowthAreas},
	{"areas for improvement", GrowthAreas},
	{"want to improve", GrowthAreas},
	{"weaknesses", GrowthAreas},
	{"misconception", Misconceptions},
	{"misunderstood", Misconceptions},
	{"wrong about you", Misconceptions},
	{"push your boundaries", Boundaries},
	{"challenge yourself", Boundaries},
	{"step out of comfort zone", Boundaries},
	{"take risks", Boundaries},
}

// Rules returns a copy of the keyword table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Book holds the persona text blocks. It is immutable after construction.
type Book struct {
	blocks   map[Topic]string
	rules    []Rule
	fallback string
}

// New builds a Book from the compiled-in blocks.
func New() (*Book, error) {
	return Load("")
}

// Load builds a Book from the compiled-in blocks, replacing any of them that
// exist in dir as <topic>.md. A default.md in dir replaces the default block
// template. An empty dir means no overrides.
func Load(dir string) (*Book, error) {
	b := &Book{
		blocks: make(map[Topic]string, len(Topics)),
		rules:  Rules(),
	}

	for _, t := range Topics {
		text, err := readBlock(dir, string(t)+".md", "blocks/"+string(t)+".md")
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", t, err)
		}
		if text == "" {
			return nil, fmt.Errorf("topic %s: empty block", t)
		}
		b.blocks[t] = text
	}

	tmpl, err := readBlock(dir, "default.md", "blocks/default.tmpl")
	if err != nil {
		return nil, fmt.Errorf("default block: %w", err)
	}
	b.fallback, err = b.render(tmpl)
	if err != nil {
		return nil, fmt.Errorf("default block: %w", err)
	}

	for t, text := range b.blocks {
		if text == b.fallback {
			return nil, fmt.Errorf("default block must differ from topic %s", t)
		}
	}

	return b, nil
}

func readBlock(dir, name, embedded string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		switch {
		case err == nil:
			return strings.TrimSpace(string(data)), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", err
		}
	}

	data, err := builtin.ReadFile(embedded)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (b *Book) render(text string) (string, error) {
	t, err := template.New("default").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	data := make(map[string]string, len(b.blocks))
	for k, v := range b.blocks {
		data[string(k)] = v
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Select returns the block of the first rule whose pattern occurs in the
// lower-cased question, or the default block when none does.
func (b *Book) Select(question string) string {
	q := strings.ToLower(question)
	for _, r := range b.rules {
		if strings.Contains(q, r.Pattern) {
			return b.blocks[r.Topic]
		}
	}
	return b.fallback
}

// Match reports which topic Select would pick.
func (b *Book) Match(question string) (Topic, bool) {
	q := strings.ToLower(question)
	for _, r := range b.rules {
		if strings.Contains(q, r.Pattern) {
			return r.Topic, true
		}
	}
	return "", false
}

func (b *Book) Block(t Topic) string {
	return b.blocks[t]
}

func (b *Book) Default() string {
	return b.fallback
}
