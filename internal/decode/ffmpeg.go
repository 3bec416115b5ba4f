package decode

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"loopmix/internal/audio"
)

// probeData is the subset of ffprobe's JSON output we read: tags live on the
// format for most containers and on the stream for ogg/opus.
type probeData struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType  string            `json:"codec_type"`
		Channels   int               `json:"channels"`
		SampleRate string            `json:"sample_rate"`
		Tags       map[string]string `json:"tags"`
	} `json:"streams"`
}

// openFFmpeg probes the container for geometry and tags, then decodes it to
// raw s16le at its native channel count and rate.
func openFFmpeg(ctx context.Context, path string) (*Result, error) {
	probe, err := runProbe(ctx, path)
	if err != nil {
		return nil, err
	}

	channels, rate := 0, 0
	streamTags := map[string]string{}
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		channels = s.Channels
		rate, _ = strconv.Atoi(s.SampleRate)
		streamTags = s.Tags
		break
	}
	if channels == 0 || rate == 0 {
		return nil, fmt.Errorf("ffprobe %s: no audio stream", path)
	}

	pcm, err := decodePCM(ctx, path, channels, rate)
	if err != nil {
		return nil, err
	}

	return &Result{
		PCM:      pcm,
		Channels: channels,
		Rate:     rate,
		Tags:     normalizeTags(probe.Format.Tags, streamTags),
	}, nil
}

func runProbe(ctx context.Context, path string) (*probeData, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var probe probeData
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return &probe, nil
}

// decodePCM runs ffmpeg to decode the file to raw interleaved int16 samples,
// keeping the container's own geometry so channel pairs stay addressable.
func decodePCM(ctx context.Context, path string, channels, rate int) ([]int16, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return audio.BytesToSamples(out), nil
}
