// Package songfile loads songs from disk: either a JSON song-description
// document naming one or more parts, or a raw audio file that gets the
// default one-variant layout. All filesystem and JSON handling lives here;
// the engine only ever sees fully validated songs.
package songfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"loopmix/internal/audio"
	"loopmix/internal/decode"
	"loopmix/internal/song"
)

// SchemaVersion is the supported song-document version. Version 1 documents
// (one file per variant) are not supported.
const SchemaVersion = 2

var (
	// ErrUnsupportedSchemaVersion is returned for any document version other
	// than SchemaVersion. No partial song is built.
	ErrUnsupportedSchemaVersion = errors.New("unsupported song document version")

	// ErrMissingAudioFile is returned when a document names no audio file or
	// names one that does not exist.
	ErrMissingAudioFile = errors.New("missing audio file")
)

// partDoc is one part descriptor of a song document. Filenames resolve
// relative to the document's own directory. loopstart/loopend override the
// container's loop tags when both are present.
type partDoc struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Filename  string     `json:"filename"`
	Variants  namedPairs `json:"variants"`
	Layers    namedPairs `json:"layers"`
	LoopStart *int       `json:"loopstart"`
	LoopEnd   *int       `json:"loopend"`
}

// namedPairs is a name → channel-pair-index map that keeps document order.
// Order matters: the first variant is the default selection and layer
// bitmasks follow layer order.
type namedPairs []audio.PairRef

func (p *namedPairs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("expected an object of name to pair index")
	}
	var refs namedPairs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		idx, ok := valTok.(float64)
		if !ok || idx != math.Trunc(idx) {
			return fmt.Errorf("pair index for %q must be an integer", name)
		}
		refs = append(refs, audio.PairRef{Name: name, Pair: int(idx)})
	}
	*p = refs
	return nil
}

// OpenSingle loads one song: a .json document (possibly multi-part) or a raw
// audio file.
func OpenSingle(ctx context.Context, path string) (*song.Song, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		docs, err := parseDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return buildSong(ctx, path, docs)
	}
	return openRaw(ctx, path)
}

// OpenMultiple loads one song per path. The result is always a slice, even
// for a single input.
func OpenMultiple(ctx context.Context, paths ...string) ([]*song.Song, error) {
	songs := make([]*song.Song, 0, len(paths))
	for _, p := range paths {
		s, err := OpenSingle(ctx, p)
		if err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, nil
}

// parseDocument accepts either one part-descriptor object or an ordered
// array of them.
func parseDocument(data []byte) ([]partDoc, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []partDoc
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc partDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return []partDoc{doc}, nil
}

func buildSong(ctx context.Context, docPath string, docs []partDoc) (*song.Song, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: empty song document", docPath)
	}
	dir := filepath.Dir(docPath)
	parts := make([]*song.Part, 0, len(docs))
	var tags song.Tags

	for i, doc := range docs {
		if doc.Version != SchemaVersion {
			return nil, fmt.Errorf("%s part %d: %w: got %d, supported %d",
				docPath, i, ErrUnsupportedSchemaVersion, doc.Version, SchemaVersion)
		}
		if doc.Filename == "" {
			return nil, fmt.Errorf("%s part %d: %w: no filename", docPath, i, ErrMissingAudioFile)
		}
		if len(docs) > 1 && doc.Name == "" {
			return nil, fmt.Errorf("%s part %d: name required in a multi-part document", docPath, i)
		}
		if len(doc.Variants) == 0 {
			return nil, fmt.Errorf("%s part %d: at least one variant required", docPath, i)
		}

		audioPath := filepath.Join(dir, doc.Filename)
		if _, err := os.Stat(audioPath); err != nil {
			return nil, fmt.Errorf("%s part %d: %w: %s", docPath, i, ErrMissingAudioFile, doc.Filename)
		}

		res, err := decode.Open(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		track, err := res.Track(audioPath, doc.LoopStart, doc.LoopEnd)
		if err != nil {
			return nil, err
		}
		layout, err := audio.NewLayout(doc.Variants, doc.Layers, track.Pairs())
		if err != nil {
			return nil, fmt.Errorf("%s part %d: %w", docPath, i, err)
		}

		parts = append(parts, song.NewPart(doc.Name, doc.Title, track, layout, audioPath))
		if tags.Empty() {
			tags = song.TagsFromMap(res.Tags)
		}
	}
	return song.New(parts, tags), nil
}

// openRaw opens an audio file without a document: the first channel pair is
// the sole variant and every further pair is an independent layer.
func openRaw(ctx context.Context, path string) (*song.Song, error) {
	res, err := decode.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	track, err := res.Track(path, nil, nil)
	if err != nil {
		return nil, err
	}
	part := song.NewPart("", "", track, audio.DefaultLayout(track.Pairs()), path)
	return song.New([]*song.Part{part}, song.TagsFromMap(res.Tags)), nil
}
