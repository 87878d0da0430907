// Package fixtures seeds an engine from a YAML file, for demos and tests.
package fixtures

import (
	"fmt"
	"io"
	"os"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/models"
	"gopkg.in/yaml.v3"
)

type Follow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

type Post struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

type DirectMessage struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Content string `yaml:"content"`
}

type Grant struct {
	Owner  string `yaml:"owner"`
	Viewer string `yaml:"viewer"`
}

// Fixture is applied in field order: follows, grants, posts, direct messages.
type Fixture struct {
	Follows        []Follow        `yaml:"follows"`
	Grants         []Grant         `yaml:"grants"`
	Posts          []Post          `yaml:"posts"`
	DirectMessages []DirectMessage `yaml:"direct_messages"`
}

func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	return &fx, nil
}

// Apply runs every fixture entry through e and stops at the first error.
func (fx *Fixture) Apply(e *feed.Engine) error {
	for i, f := range fx.Follows {
		if err := e.Follow(models.UserID(f.Follower), models.UserID(f.Followee)); err != nil {
			return fmt.Errorf("follows[%d]: %w", i, err)
		}
	}
	for i, g := range fx.Grants {
		if err := e.AllowViewer(models.UserID(g.Owner), models.UserID(g.Viewer)); err != nil {
			return fmt.Errorf("grants[%d]: %w", i, err)
		}
	}
	for i, p := range fx.Posts {
		if _, err := e.PostMessage(models.UserID(p.Author), p.Content); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
	}
	for i, dm := range fx.DirectMessages {
		if _, err := e.SendDirectMessage(models.UserID(dm.From), models.UserID(dm.To), dm.Content); err != nil {
			return fmt.Errorf("direct_messages[%d]: %w", i, err)
		}
	}
	return nil
}
