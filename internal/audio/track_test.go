package audio

import (
	"errors"
	"testing"
)

func TestNewTrackValid(t *testing.T) {
	pcm := make([]int16, 1000*2)
	tr, err := NewTrack(pcm, 2, 44100, 200, 900, "Test")
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	if tr.Frames() != 1000 {
		t.Errorf("Frames() = %d, want 1000", tr.Frames())
	}
	if tr.Pairs() != 1 {
		t.Errorf("Pairs() = %d, want 1", tr.Pairs())
	}
}

func TestNewTrackRejectsBadChannels(t *testing.T) {
	tests := []struct {
		name     string
		channels int
	}{
		{"mono", 1},
		{"odd", 3},
		{"five", 5},
		{"zero", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]int16, 100*6)
			_, err := NewTrack(pcm, tt.channels, 44100, 0, 10, "")
			if !errors.Is(err, ErrUnsupportedChannelLayout) {
				t.Errorf("channels=%d: err = %v, want ErrUnsupportedChannelLayout", tt.channels, err)
			}
		})
	}
}

func TestNewTrackRejectsBadLoop(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
	}{
		{"negative start", -1, 100},
		{"start at end", 100, 100},
		{"start past end", 200, 100},
		{"end past frames", 0, 1001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]int16, 1000*2)
			_, err := NewTrack(pcm, 2, 44100, tt.start, tt.end, "")
			if !errors.Is(err, ErrMalformedLoopMetadata) {
				t.Errorf("loop [%d,%d): err = %v, want ErrMalformedLoopMetadata", tt.start, tt.end, err)
			}
		})
	}
}

func TestNewTrackLoopEndAtFrameCount(t *testing.T) {
	pcm := make([]int16, 1000*2)
	if _, err := NewTrack(pcm, 2, 44100, 0, 1000, ""); err != nil {
		t.Errorf("loop_end == frame_count should be valid: %v", err)
	}
}

func TestSamplesBytesRoundTrip(t *testing.T) {
	original := []int16{0, 1, -1, 32767, -32768, 12345, -6789}
	buf := SamplesToBytes(original)
	if len(buf) != len(original)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(original)*2)
	}

	// 256 = 0x0100 -> little-endian bytes [0x00, 0x01]
	buf2 := SamplesToBytes([]int16{256})
	if buf2[0] != 0x00 || buf2[1] != 0x01 {
		t.Errorf("256 encoded as [%02x, %02x], want [00, 01]", buf2[0], buf2[1])
	}

	recovered := BytesToSamples(buf)
	for i, v := range original {
		if recovered[i] != v {
			t.Errorf("round-trip sample[%d]: got %d, want %d", i, recovered[i], v)
		}
	}
}

func TestBytesToSamplesOddLength(t *testing.T) {
	got := BytesToSamples([]byte{0x01, 0x00, 0xff})
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("BytesToSamples with odd input = %v, want [1]", got)
	}
}
