// Package song holds the aggregates a listener selects between: a Part couples
// one decoded track with its variant/layer layout, a Song is an ordered set of
// parts sharing one title.
package song

import (
	"path/filepath"
	"strings"

	"loopmix/internal/audio"
)

// Part is one selectable section of a song ("Normal", "Final Lap", ...),
// backed by exactly one decoded track and the layout that names its channel
// pairs.
type Part struct {
	Name   string
	Title  string
	Track  *audio.Track
	Layout *audio.Layout
}

// NewPart resolves the part title once, at construction: document title, else
// the track's embedded title, else the source filename without extension.
func NewPart(name, title string, track *audio.Track, layout *audio.Layout, source string) *Part {
	if name == "" {
		name = "Play"
	}
	if title == "" {
		title = track.Title
	}
	if title == "" {
		base := filepath.Base(source)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &Part{Name: name, Title: title, Track: track, Layout: layout}
}

// Song is an ordered collection of parts in authoring order. Current is the
// active part index; only the engine that owns the song mutates it.
type Song struct {
	Parts   []*Part
	Tags    Tags
	Current int
}

// New builds a song from parts in authoring order.
func New(parts []*Part, tags Tags) *Song {
	return &Song{Parts: parts, Tags: tags}
}

// Title returns the song's display title: the tag title if set, else the
// first part's resolved title.
func (s *Song) Title() string {
	if s.Tags.Title != "" {
		return s.Tags.Title
	}
	if len(s.Parts) > 0 {
		return s.Parts[0].Title
	}
	return ""
}

// Part returns the part at index i, or nil if out of range.
func (s *Song) Part(i int) *Part {
	if i < 0 || i >= len(s.Parts) {
		return nil
	}
	return s.Parts[i]
}

// PartIndex returns the index of the named part.
func (s *Song) PartIndex(name string) (int, bool) {
	for i, p := range s.Parts {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

// PartNames returns the part names in authoring order.
func (s *Song) PartNames() []string {
	names := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		names[i] = p.Name
	}
	return names
}
