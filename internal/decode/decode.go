// Package decode turns audio containers into validated tracks. WAV files are
// read natively; everything else goes through ffprobe/ffmpeg at the
// container's own channel count and sample rate. All decoding happens here,
// before a part exists — the playback path never touches a file.
package decode

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"loopmix/internal/audio"
)

// Result is a decoded container before loop validation: interleaved PCM, the
// container's native geometry, and its metadata tags with lowercased keys.
type Result struct {
	PCM      []int16
	Channels int
	Rate     int
	Tags     map[string]string

	// smplLoop holds the first sampler-chunk loop of a WAV file, as a
	// [start, end) frame range. Used when no loop tags are present.
	smplLoop *[2]int
}

// Open decodes the container at path.
func Open(ctx context.Context, path string) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return openWAV(path)
	}
	return openFFmpeg(ctx, path)
}

// Track validates loop markers and builds the immutable track. Explicit
// overrides (from a song document) win over container tags, each side
// independently; WAV sampler chunks are the fallback when tags are absent.
func (r *Result) Track(path string, overrideStart, overrideEnd *int) (*audio.Track, error) {
	start, end, err := r.loopPoints()
	if overrideStart != nil {
		start = *overrideStart
	}
	if overrideEnd != nil {
		end = *overrideEnd
	}
	if overrideStart != nil && overrideEnd != nil {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t, err := audio.NewTrack(r.PCM, r.Channels, r.Rate, start, end, r.Tags["title"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// loopPoints resolves the loop range from tags: LOOPSTART plus either
// LOOPLENGTH or LOOPEND, case-insensitive since the decoder lowercases keys.
func (r *Result) loopPoints() (start, end int, err error) {
	startTag, haveStart := r.Tags["loopstart"]
	if !haveStart {
		if r.smplLoop != nil {
			return r.smplLoop[0], r.smplLoop[1], nil
		}
		return 0, 0, fmt.Errorf("%w: no LOOPSTART tag", audio.ErrMalformedLoopMetadata)
	}
	start, err = parseLoopTag("LOOPSTART", startTag)
	if err != nil {
		return 0, 0, err
	}

	if lengthTag, ok := r.Tags["looplength"]; ok {
		length, err := parseLoopTag("LOOPLENGTH", lengthTag)
		if err != nil {
			return 0, 0, err
		}
		return start, start + length, nil
	}
	if endTag, ok := r.Tags["loopend"]; ok {
		end, err = parseLoopTag("LOOPEND", endTag)
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}
	return 0, 0, fmt.Errorf("%w: LOOPSTART without LOOPLENGTH or LOOPEND", audio.ErrMalformedLoopMetadata)
}

func parseLoopTag(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", audio.ErrMalformedLoopMetadata, name, value)
	}
	return n, nil
}

// normalizeTags lowercases tag keys so LOOPSTART, LoopStart and loopstart
// all resolve. Later maps win on key collisions.
func normalizeTags(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}
