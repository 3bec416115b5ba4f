package decode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"loopmix/internal/audio"
)

func TestLoopPointsFromTags(t *testing.T) {
	tests := []struct {
		name      string
		tags      map[string]string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{
			name:      "start plus length",
			tags:      map[string]string{"loopstart": "200", "looplength": "700"},
			wantStart: 200, wantEnd: 900,
		},
		{
			name:      "start plus explicit end",
			tags:      map[string]string{"loopstart": "200", "loopend": "900"},
			wantStart: 200, wantEnd: 900,
		},
		{
			name:      "length wins over end",
			tags:      map[string]string{"loopstart": "100", "looplength": "50", "loopend": "999"},
			wantStart: 100, wantEnd: 150,
		},
		{
			name:      "whitespace tolerated",
			tags:      map[string]string{"loopstart": " 10 ", "looplength": " 20 "},
			wantStart: 10, wantEnd: 30,
		},
		{
			name:    "no tags",
			tags:    map[string]string{},
			wantErr: true,
		},
		{
			name:    "start without length or end",
			tags:    map[string]string{"loopstart": "5"},
			wantErr: true,
		},
		{
			name:    "non-numeric start",
			tags:    map[string]string{"loopstart": "abc", "looplength": "10"},
			wantErr: true,
		},
		{
			name:    "non-numeric length",
			tags:    map[string]string{"loopstart": "0", "looplength": "ten"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Tags: tt.tags}
			start, end, err := r.loopPoints()
			if tt.wantErr {
				if !errors.Is(err, audio.ErrMalformedLoopMetadata) {
					t.Errorf("err = %v, want ErrMalformedLoopMetadata", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("loopPoints: %v", err)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("loop = [%d, %d), want [%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags(
		map[string]string{"LOOPSTART": "1", "Title": "Song"},
		map[string]string{"LoopLength": "2", "title": "Override"},
	)
	want := map[string]string{"loopstart": "1", "looplength": "2", "title": "Override"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("tags[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestTrackOverridesWinOverTags(t *testing.T) {
	pcm := make([]int16, 1000*2)
	r := &Result{PCM: pcm, Channels: 2, Rate: 44100,
		Tags: map[string]string{"loopstart": "1", "looplength": "2"}}

	start, end := 300, 800
	tr, err := r.Track("x.ogg", &start, &end)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.LoopStart != 300 || tr.LoopEnd != 800 {
		t.Errorf("loop = [%d, %d), want override [300, 800)", tr.LoopStart, tr.LoopEnd)
	}
}

func TestTrackSingleOverride(t *testing.T) {
	pcm := make([]int16, 1000*2)
	r := &Result{PCM: pcm, Channels: 2, Rate: 44100,
		Tags: map[string]string{"loopstart": "100", "loopend": "900"}}

	end := 500
	tr, err := r.Track("x.ogg", nil, &end)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.LoopStart != 100 || tr.LoopEnd != 500 {
		t.Errorf("loop = [%d, %d), want [100, 500)", tr.LoopStart, tr.LoopEnd)
	}

	// a lone override cannot stand in for missing tags
	r = &Result{PCM: pcm, Channels: 2, Rate: 44100, Tags: map[string]string{}}
	if _, err := r.Track("x.ogg", nil, &end); !errors.Is(err, audio.ErrMalformedLoopMetadata) {
		t.Errorf("err = %v, want ErrMalformedLoopMetadata", err)
	}
}

func TestTrackRangeViolation(t *testing.T) {
	pcm := make([]int16, 100*2)
	r := &Result{PCM: pcm, Channels: 2, Rate: 44100,
		Tags: map[string]string{"loopstart": "0", "looplength": "500"}}
	_, err := r.Track("short.ogg", nil, nil)
	if !errors.Is(err, audio.ErrMalformedLoopMetadata) {
		t.Errorf("err = %v, want ErrMalformedLoopMetadata", err)
	}
}

func TestTrackOddChannels(t *testing.T) {
	r := &Result{PCM: make([]int16, 300), Channels: 3, Rate: 44100,
		Tags: map[string]string{"loopstart": "0", "looplength": "100"}}
	_, err := r.Track("odd.ogg", nil, nil)
	if !errors.Is(err, audio.ErrUnsupportedChannelLayout) {
		t.Errorf("err = %v, want ErrUnsupportedChannelLayout", err)
	}
}

// writeWAV writes a 16-bit PCM WAV with the go-audio encoder.
func writeWAV(t *testing.T, path string, channels, rate int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	data := make([]int, 64*2)
	for f := 0; f < 64; f++ {
		data[f*2] = f
		data[f*2+1] = -f
	}
	writeWAV(t, path, 2, 44100, data)

	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Channels != 2 || r.Rate != 44100 {
		t.Errorf("geometry = %d ch @ %d Hz, want 2 @ 44100", r.Channels, r.Rate)
	}
	if len(r.PCM) != 128 {
		t.Fatalf("len(PCM) = %d, want 128", len(r.PCM))
	}
	for f := 0; f < 64; f++ {
		if r.PCM[f*2] != int16(f) || r.PCM[f*2+1] != int16(-f) {
			t.Fatalf("frame %d = %d, %d, want %d, %d", f, r.PCM[f*2], r.PCM[f*2+1], f, -f)
		}
	}
}

func TestOpenWAVSmplLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loop.wav")
	writeSmplWAV(t, path, 2, 44100, 100, 20, 79)

	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tr, err := r.Track(path, nil, nil)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	// smpl End is inclusive, so the loop is [20, 80)
	if tr.LoopStart != 20 || tr.LoopEnd != 80 {
		t.Errorf("loop = [%d, %d), want [20, 80)", tr.LoopStart, tr.LoopEnd)
	}
}
