// Package engine is the real-time looping mixer. Control calls build an
// immutable selection snapshot and publish it through one atomic pointer;
// the producer loads the snapshot once per batch and mixes frames from it,
// so commands land between frames and the mix is never torn.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"loopmix/internal/audio"
	"loopmix/internal/song"
)

var (
	// ErrNoPart is returned by commands that need an active part.
	ErrNoPart = errors.New("no part selected")

	// ErrPartOutOfRange is returned for part indices the song does not have.
	ErrPartOutOfRange = errors.New("part index out of range")

	// ErrUnknownSelection is returned for variant/layer/part names that do
	// not exist in the active layout. Selection state is left untouched.
	ErrUnknownSelection = errors.New("unknown selection name")
)

// snapshot is the playback selection state at one instant. Snapshots are
// immutable: control calls copy the current one, modify the copy under the
// engine mutex, and publish it with a single atomic store.
type snapshot struct {
	part    *song.Part
	index   int
	gen     uint64 // bumped on part switch and seek; carries start
	start   int    // producer cursor frame when it observes a new gen
	playing bool
	paused  bool
	volume  float32

	variant     int // position in layout.Variants
	variantPair int
	layerOn     uint64                     // bit i = layout.Layers[i] active
	layerGain   [audio.MaxPairs]float32    // per layer position
}

// Engine mixes the active part's channel pairs into a stereo stream. One
// producer (a device callback or the broadcast pump) pulls frames; any number
// of goroutines may issue commands concurrently.
type Engine struct {
	mu   sync.Mutex // serializes control calls, never held by the producer
	song *song.Song
	cur  atomic.Pointer[snapshot]
	pos  atomic.Int64 // cursor as last published by the producer

	// producer-owned, untouched by control calls
	cursor int
	gen    uint64
}

// New returns an idle engine at full volume.
func New() *Engine {
	e := &Engine{}
	e.cur.Store(&snapshot{volume: 1})
	return e
}

// SetSong binds a song and returns the engine to idle with no part selected.
// Master volume carries over.
func (e *Engine) SetSong(s *song.Song) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.song = s
	vol := e.cur.Load().volume
	next := &snapshot{volume: vol, gen: e.cur.Load().gen + 1}
	e.cur.Store(next)
	e.pos.Store(0)
}

// Song returns the bound song, or nil.
func (e *Engine) Song() *song.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.song
}

// SelectPart activates the part at index i from frame 0. Variant falls back
// to the layout's first, layers clear, volume persists. If another part was
// playing its output is dropped at the next batch, unfaded.
func (e *Engine) SelectPart(i int) error {
	return e.selectPart(i, 0)
}

// SelectPartAt is SelectPart starting at the given frame, clamped to the
// track's range.
func (e *Engine) SelectPartAt(i, frame int) error {
	return e.selectPart(i, frame)
}

// SelectPartName activates the part with the given name.
func (e *Engine) SelectPartName(name string) error {
	e.mu.Lock()
	s := e.song
	e.mu.Unlock()
	if s == nil {
		return ErrNoPart
	}
	i, ok := s.PartIndex(name)
	if !ok {
		return fmt.Errorf("%w: part %q", ErrUnknownSelection, name)
	}
	return e.selectPart(i, 0)
}

func (e *Engine) selectPart(i, frame int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.song == nil {
		return ErrNoPart
	}
	p := e.song.Part(i)
	if p == nil {
		return fmt.Errorf("%w: %d of %d", ErrPartOutOfRange, i, len(e.song.Parts))
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= p.Track.Frames() {
		frame = p.Track.LoopStart
	}
	next := *e.cur.Load()
	next.part = p
	next.index = i
	next.gen++
	next.start = frame
	next.playing = true
	next.paused = false
	next.variant = 0
	next.variantPair = p.Layout.Variants[0].Pair
	next.layerOn = 0
	next.layerGain = [audio.MaxPairs]float32{}
	e.song.Current = i
	e.cur.Store(&next)
	log.Printf("engine: part %d (%s) selected", i, p.Name)
	return nil
}

// Stop halts production. Cursor and selections are retained for Play.
func (e *Engine) Stop() {
	e.update(func(s *snapshot) error {
		s.playing = false
		return nil
	})
}

// Play resumes a stopped part at its retained cursor.
func (e *Engine) Play() error {
	return e.update(func(s *snapshot) error {
		if s.part == nil {
			return ErrNoPart
		}
		s.playing = true
		return nil
	})
}

// SetPaused freezes or resumes the cursor; while paused the producer emits
// silence but keeps pulling.
func (e *Engine) SetPaused(paused bool) {
	e.update(func(s *snapshot) error {
		s.paused = paused
		return nil
	})
}

// Paused reports whether playback is paused.
func (e *Engine) Paused() bool {
	return e.cur.Load().paused
}

// SetVariant switches the active variant. Takes effect at the next produced
// frame; an unknown name leaves the selection untouched.
func (e *Engine) SetVariant(name string) error {
	return e.update(func(s *snapshot) error {
		if s.part == nil {
			return ErrNoPart
		}
		i, ok := s.part.Layout.VariantIndex(name)
		if !ok {
			return fmt.Errorf("%w: variant %q", ErrUnknownSelection, name)
		}
		s.variant = i
		s.variantPair = s.part.Layout.Variants[i].Pair
		return nil
	})
}

// ToggleLayer flips one layer on or off. A layer switched on plays at gain 1.
func (e *Engine) ToggleLayer(name string) error {
	return e.update(func(s *snapshot) error {
		i, err := layerIndex(s, name)
		if err != nil {
			return err
		}
		s.layerOn ^= 1 << uint(i)
		if s.layerOn>>uint(i)&1 == 1 {
			s.layerGain[i] = 1
		} else {
			s.layerGain[i] = 0
		}
		return nil
	})
}

// SetLayer switches one layer on or off explicitly.
func (e *Engine) SetLayer(name string, on bool) error {
	gain := float32(0)
	if on {
		gain = 1
	}
	return e.SetLayerGain(name, gain)
}

// SetLayerGain sets one layer's gain. Zero mutes the layer; anything above
// zero activates it at that gain.
func (e *Engine) SetLayerGain(name string, gain float32) error {
	return e.update(func(s *snapshot) error {
		i, err := layerIndex(s, name)
		if err != nil {
			return err
		}
		s.layerGain[i] = gain
		if gain > 0 {
			s.layerOn |= 1 << uint(i)
		} else {
			s.layerOn &^= 1 << uint(i)
		}
		return nil
	})
}

// SetLayers replaces the active layer set with exactly the named layers at
// gain 1. Any unknown name fails the whole call with no partial application.
func (e *Engine) SetLayers(names []string) error {
	return e.update(func(s *snapshot) error {
		if s.part == nil {
			return ErrNoPart
		}
		var on uint64
		for _, name := range names {
			i, ok := s.part.Layout.LayerIndex(name)
			if !ok {
				return fmt.Errorf("%w: layer %q", ErrUnknownSelection, name)
			}
			on |= 1 << uint(i)
		}
		s.layerOn = on
		for i := range s.part.Layout.Layers {
			if on>>uint(i)&1 == 1 {
				s.layerGain[i] = 1
			} else {
				s.layerGain[i] = 0
			}
		}
		return nil
	})
}

// SetLayersBits drives the layer set from a bitmask: bit i is the i-th layer
// in layout order. Bits beyond the layout are ignored.
func (e *Engine) SetLayersBits(mask uint64) error {
	return e.update(func(s *snapshot) error {
		if s.part == nil {
			return ErrNoPart
		}
		n := len(s.part.Layout.Layers)
		if n < 64 {
			mask &= 1<<uint(n) - 1
		}
		s.layerOn = mask
		for i := 0; i < n; i++ {
			if mask>>uint(i)&1 == 1 {
				s.layerGain[i] = 1
			} else {
				s.layerGain[i] = 0
			}
		}
		return nil
	})
}

// SetVolume sets the master volume, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.update(func(s *snapshot) error {
		s.volume = float32(v)
		return nil
	})
}

// Volume returns the master volume.
func (e *Engine) Volume() float64 {
	return float64(e.cur.Load().volume)
}

// Seek moves the cursor to the given frame, clamped to the track's range.
func (e *Engine) Seek(frame int) error {
	return e.update(func(s *snapshot) error {
		if s.part == nil {
			return ErrNoPart
		}
		if frame < 0 {
			frame = 0
		}
		if frame >= s.part.Track.Frames() {
			frame = s.part.Track.LoopStart
		}
		s.gen++
		s.start = frame
		return nil
	})
}

// update copies the published snapshot, applies f, and republishes it.
// Last writer wins; the producer sees either the old or the new snapshot,
// never a mix.
func (e *Engine) update(f func(*snapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := *e.cur.Load()
	if err := f(&next); err != nil {
		return err
	}
	e.cur.Store(&next)
	return nil
}

func layerIndex(s *snapshot, name string) (int, error) {
	if s.part == nil {
		return 0, ErrNoPart
	}
	i, ok := s.part.Layout.LayerIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w: layer %q", ErrUnknownSelection, name)
	}
	return i, nil
}
