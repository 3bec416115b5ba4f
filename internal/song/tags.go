package song

import "strings"

// Tags identify a song and its source. None of them are needed for playback;
// they only feed the status surface.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Game   string
	Number string
	Year   string
}

// TagsFromMap picks the known fields out of a decoder tag map. Keys are
// expected lowercased, the way the decoder normalizes them.
func TagsFromMap(m map[string]string) Tags {
	return Tags{
		Title:  m["title"],
		Artist: m["artist"],
		Album:  m["album"],
		Game:   m["game"],
		Number: m["track"],
		Year:   m["date"],
	}
}

// Empty reports whether no tag field is set.
func (t Tags) Empty() bool {
	return t == Tags{}
}

// String renders the set fields for display, semicolon-separated.
func (t Tags) String() string {
	var parts []string
	if t.Title != "" {
		parts = append(parts, t.Title)
	}
	if t.Artist != "" {
		parts = append(parts, t.Artist)
	}
	switch {
	case t.Album != "" && t.Game != "":
		parts = append(parts, "Album: "+t.Album, "Game: "+t.Game)
	case t.Album != "":
		parts = append(parts, t.Album)
	case t.Game != "":
		parts = append(parts, t.Game)
	}
	if t.Number != "" {
		parts = append(parts, "#"+t.Number)
	}
	if t.Year != "" {
		parts = append(parts, t.Year)
	}
	return strings.Join(parts, "; ")
}
