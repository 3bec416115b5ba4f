package engine

// State is the engine's lifecycle state.
type State int

const (
	// Idle: no part has been selected since the song was bound.
	Idle State = iota
	// Playing: the cursor advances and the sink consumes output.
	Playing
	// Stopped: a part is selected but production is halted; cursor and
	// selections are retained.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	s := e.cur.Load()
	switch {
	case s.part == nil:
		return Idle
	case s.playing:
		return Playing
	default:
		return Stopped
	}
}

// Variant returns the active variant's name, or "" when idle.
func (e *Engine) Variant() string {
	s := e.cur.Load()
	if s.part == nil {
		return ""
	}
	return s.part.Layout.Variants[s.variant].Name
}

// ActiveLayers returns the names of the active layers in layout order.
func (e *Engine) ActiveLayers() []string {
	s := e.cur.Load()
	if s.part == nil {
		return nil
	}
	var names []string
	for i, ref := range s.part.Layout.Layers {
		if s.layerOn>>uint(i)&1 == 1 {
			names = append(names, ref.Name)
		}
	}
	return names
}

// Position returns the producer cursor as of the last produced batch.
func (e *Engine) Position() int64 {
	return e.pos.Load()
}

// SampleRate returns the active part's sample rate, or 0 when idle.
func (e *Engine) SampleRate() int {
	s := e.cur.Load()
	if s.part == nil {
		return 0
	}
	return s.part.Track.Rate
}

// Status is a point-in-time view of playback for the control surface.
type Status struct {
	Song      string   `json:"song"`
	Part      string   `json:"part"`
	PartIndex int      `json:"part_index"`
	State     string   `json:"state"`
	Paused    bool     `json:"paused"`
	Variant   string   `json:"variant"`
	Layers    []string `json:"layers"`
	Volume    float64  `json:"volume"`
	Position  int64    `json:"position"`
	Rate      int      `json:"rate"`
	Frames    int      `json:"frames"`
	LoopStart int      `json:"loop_start"`
	LoopEnd   int      `json:"loop_end"`
}

// Snapshot assembles the status view from one published snapshot.
func (e *Engine) Snapshot() Status {
	s := e.cur.Load()
	st := Status{
		State:    e.State().String(),
		Paused:   s.paused,
		Volume:   float64(s.volume),
		Position: e.pos.Load(),
	}
	e.mu.Lock()
	if e.song != nil {
		st.Song = e.song.Title()
	}
	e.mu.Unlock()
	if s.part != nil {
		st.Part = s.part.Name
		st.PartIndex = s.index
		st.Variant = s.part.Layout.Variants[s.variant].Name
		for i, ref := range s.part.Layout.Layers {
			if s.layerOn>>uint(i)&1 == 1 {
				st.Layers = append(st.Layers, ref.Name)
			}
		}
		st.Rate = s.part.Track.Rate
		st.Frames = s.part.Track.Frames()
		st.LoopStart = s.part.Track.LoopStart
		st.LoopEnd = s.part.Track.LoopEnd
	}
	return st
}
