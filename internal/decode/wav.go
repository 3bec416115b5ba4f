package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// openWAV decodes a WAV file in-process. Loop markers come from the smpl
// chunk when present; RIFF INFO strings become tags.
func openWAV(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Metadata pass. ReadMetadata walks the whole chunk list, so the PCM
	// pass below restarts from the top of the file.
	d := wav.NewDecoder(f)
	d.ReadMetadata()
	if d.Err() != nil {
		return nil, fmt.Errorf("wav metadata %s: %w", path, d.Err())
	}
	meta := d.Metadata

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wav %s: %w", path, err)
	}
	d = wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode %s: %w", path, err)
	}

	pcm := make([]int16, len(buf.Data))
	switch d.BitDepth {
	case 16:
		for i, v := range buf.Data {
			pcm[i] = int16(v)
		}
	case 8:
		for i, v := range buf.Data {
			pcm[i] = int16((v - 128) << 8)
		}
	case 24:
		for i, v := range buf.Data {
			pcm[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			pcm[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("wav %s: unsupported bit depth %d", path, d.BitDepth)
	}

	r := &Result{
		PCM:      pcm,
		Channels: int(d.NumChans),
		Rate:     int(d.SampleRate),
		Tags:     map[string]string{},
	}

	if meta != nil {
		r.Tags = normalizeTags(infoTags(meta))
		if meta.SamplerInfo != nil && len(meta.SamplerInfo.Loops) > 0 {
			// smpl loop End is the last sample of the loop, inclusive.
			loop := meta.SamplerInfo.Loops[0]
			r.smplLoop = &[2]int{int(loop.Start), int(loop.End) + 1}
		}
	}
	return r, nil
}

func infoTags(meta *wav.Metadata) map[string]string {
	tags := map[string]string{}
	set := func(key, val string) {
		if val != "" {
			tags[key] = val
		}
	}
	set("title", meta.Title)
	set("artist", meta.Artist)
	set("album", meta.Product)
	set("genre", meta.Genre)
	set("track", meta.TrackNbr)
	set("date", meta.CreationDate)
	set("comment", meta.Comments)
	set("software", meta.Software)
	return tags
}
