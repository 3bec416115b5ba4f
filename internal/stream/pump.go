package stream

import (
	"context"
	"time"
)

// BatchDuration is the cadence of the broadcast pump. Each batch holds
// 20ms of stereo frames at the source's current sample rate.
const BatchDuration = 20 * time.Millisecond

// FrameSource is the pull surface the pump drains: interleaved stereo int16
// at a rate the source reports. The mix engine is the one implementation.
type FrameSource interface {
	ReadFrames(dst []int16) int
	SampleRate() int
}

// Pump pulls the live mix at real-time cadence and feeds the broadcaster.
// It is the single consumer of the source's pull surface.
type Pump struct {
	src     FrameSource
	batchCh chan []int16
}

// NewPump creates a pump over the given source.
func NewPump(src FrameSource) *Pump {
	return &Pump{
		src:     src,
		batchCh: make(chan []int16, 100),
	}
}

// Batches returns the channel of outgoing PCM batches (20ms each).
func (p *Pump) Batches() <-chan []int16 {
	return p.batchCh
}

// Run drives the pump until ctx is cancelled. The batch size is re-derived
// every tick so part switches to a different sample rate keep real-time
// pacing. While no part has ever been selected the source reports rate 0
// and nothing is broadcast.
func (p *Pump) Run(ctx context.Context) {
	defer close(p.batchCh)

	ticker := time.NewTicker(BatchDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rate := p.src.SampleRate()
		if rate == 0 {
			continue
		}

		// Fresh buffer per batch: batches are shared across listeners and
		// must never be reused.
		batch := make([]int16, rate/50*2)
		n := p.src.ReadFrames(batch)

		select {
		case p.batchCh <- batch[:n]:
		default:
			// broadcaster backed up, drop the batch
		}
	}
}
