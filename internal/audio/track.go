package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxPairs caps the number of stereo channel pairs in a track. Layer
// selection is addressed with a 64-bit mask, so the cap is 64.
const MaxPairs = 64

var (
	// ErrMalformedLoopMetadata is returned when loop markers are absent,
	// non-numeric, or outside the track's frame range.
	ErrMalformedLoopMetadata = errors.New("malformed loop metadata")

	// ErrUnsupportedChannelLayout is returned for tracks whose channel count
	// cannot be split into stereo pairs.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
)

// Track is one decoded audio container: interleaved int16 PCM, a fixed
// channel count and sample rate, and the loop markers embedded in the source.
// Tracks are immutable once built and owned by exactly one song part.
type Track struct {
	PCM       []int16 // interleaved, Channels samples per frame
	Channels  int
	Rate      int
	LoopStart int // frame index, first frame of the repeating section
	LoopEnd   int // frame index one past the repeating section
	Title     string
}

// NewTrack validates the channel layout and loop markers and returns the
// track. Playback starts at frame 0, runs to LoopEnd, then repeats
// [LoopStart, LoopEnd) forever.
func NewTrack(pcm []int16, channels, rate, loopStart, loopEnd int, title string) (*Track, error) {
	if channels < 2 || channels%2 != 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedChannelLayout, channels)
	}
	if channels/2 > MaxPairs {
		return nil, fmt.Errorf("%w: %d channel pairs exceeds %d", ErrUnsupportedChannelLayout, channels/2, MaxPairs)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", rate)
	}
	t := &Track{
		PCM:       pcm,
		Channels:  channels,
		Rate:      rate,
		LoopStart: loopStart,
		LoopEnd:   loopEnd,
		Title:     title,
	}
	if loopStart < 0 || loopStart >= loopEnd || loopEnd > t.Frames() {
		return nil, fmt.Errorf("%w: loop [%d, %d) outside frames [0, %d)",
			ErrMalformedLoopMetadata, loopStart, loopEnd, t.Frames())
	}
	return t, nil
}

// Frames returns the number of interleaved frames in the track.
func (t *Track) Frames() int {
	return len(t.PCM) / t.Channels
}

// Pairs returns the number of stereo channel pairs.
func (t *Track) Pairs() int {
	return t.Channels / 2
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian PCM bytes to int16 samples. A
// trailing odd byte is dropped.
func BytesToSamples(raw []byte) []int16 {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return samples
}
