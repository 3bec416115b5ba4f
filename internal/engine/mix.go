package engine

import "loopmix/internal/audio"

// The producer side: both pull surfaces share one mix core and one
// producer-owned cursor, so only a single consumer may pull at a time.
// Nothing on this path locks or allocates.

// Stream fills samples with the live mix, satisfying the beep.Streamer
// contract. Idle, stopped and paused states fill silence and return true;
// the device sink keeps pulling for the life of the session.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	snap := e.observe()
	if !audible(snap) {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return len(samples), true
	}

	const scale = 1.0 / 32768.0
	vol := float64(snap.volume) * scale
	t := snap.part.Track
	for i := range samples {
		l, r := mixFrame(snap, e.cursor)
		samples[i][0] = l * vol
		samples[i][1] = r * vol
		e.advance(t)
	}
	e.pos.Store(int64(e.cursor))
	return len(samples), true
}

// Err satisfies beep.Streamer. Production never errors: every part is fully
// validated before it becomes selectable.
func (e *Engine) Err() error {
	return nil
}

// ReadFrames fills dst with interleaved stereo int16 for the broadcast pump.
// Returns the number of samples written, always len(dst) rounded down to a
// whole frame. Conversion clamps at the int16 boundary only; the mix itself
// stays additive.
func (e *Engine) ReadFrames(dst []int16) int {
	n := len(dst) &^ 1
	snap := e.observe()
	if !audible(snap) {
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		return n
	}

	vol := float64(snap.volume)
	t := snap.part.Track
	for i := 0; i < n; i += 2 {
		l, r := mixFrame(snap, e.cursor)
		dst[i] = clampSample(l * vol)
		dst[i+1] = clampSample(r * vol)
		e.advance(t)
	}
	e.pos.Store(int64(e.cursor))
	return n
}

// observe loads the published snapshot and applies any pending part switch
// or seek to the producer cursor.
func (e *Engine) observe() *snapshot {
	snap := e.cur.Load()
	if snap.gen != e.gen {
		e.gen = snap.gen
		e.cursor = snap.start
		e.pos.Store(int64(e.cursor))
	}
	return snap
}

func audible(s *snapshot) bool {
	return s.part != nil && s.playing && !s.paused
}

// mixFrame reads the active variant's stereo pair at the cursor and adds
// each active layer's pair scaled by its gain. Values stay in the int16
// sample domain; no gain compensation is applied.
func mixFrame(s *snapshot, cursor int) (l, r float64) {
	t := s.part.Track
	base := cursor * t.Channels
	l = float64(t.PCM[base+2*s.variantPair])
	r = float64(t.PCM[base+2*s.variantPair+1])
	layers := s.part.Layout.Layers
	for i := range layers {
		if s.layerOn>>uint(i)&1 == 0 {
			continue
		}
		g := float64(s.layerGain[i])
		p := layers[i].Pair
		l += float64(t.PCM[base+2*p]) * g
		r += float64(t.PCM[base+2*p+1]) * g
	}
	return l, r
}

// advance steps the cursor and wraps loop_end back to loop_start. The track
// end is a defensive secondary wrap boundary for misreported loop points.
func (e *Engine) advance(t *audio.Track) {
	e.cursor++
	if e.cursor == t.LoopEnd || e.cursor >= t.Frames() {
		e.cursor = t.LoopStart
	}
}

func clampSample(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
