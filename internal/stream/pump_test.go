package stream

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource counts up through int16 samples so batches are easy to verify.
type fakeSource struct {
	rate atomic.Int64
	next atomic.Int64
}

func (s *fakeSource) SampleRate() int { return int(s.rate.Load()) }

func (s *fakeSource) ReadFrames(dst []int16) int {
	for i := range dst {
		dst[i] = int16(s.next.Add(1))
	}
	return len(dst)
}

func TestPumpBatchGeometry(t *testing.T) {
	src := &fakeSource{}
	src.rate.Store(44100)
	p := NewPump(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case batch := <-p.Batches():
		// 20ms of stereo at 44100 Hz
		if want := 44100 / 50 * 2; len(batch) != want {
			t.Errorf("batch length = %d, want %d", len(batch), want)
		}
	case <-time.After(time.Second):
		t.Fatal("no batch within a second")
	}
}

func TestPumpBatchesAreContiguous(t *testing.T) {
	src := &fakeSource{}
	src.rate.Store(8000)
	p := NewPump(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	var prev int16
	for b := 0; b < 3; b++ {
		select {
		case batch := <-p.Batches():
			for i, v := range batch {
				if b == 0 && i == 0 {
					prev = v
					continue
				}
				if v != prev+1 {
					t.Fatalf("batch %d sample %d = %d, want %d", b, i, v, prev+1)
				}
				prev = v
			}
		case <-time.After(time.Second):
			t.Fatal("no batch within a second")
		}
	}
}

func TestPumpIdleSourceEmitsNothing(t *testing.T) {
	src := &fakeSource{} // rate 0: no part selected yet
	p := NewPump(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case batch := <-p.Batches():
		t.Errorf("got a %d-sample batch from an idle source", len(batch))
	case <-time.After(5 * BatchDuration):
	}
}

func TestPumpClosesChannelOnCancel(t *testing.T) {
	src := &fakeSource{}
	src.rate.Store(8000)
	p := NewPump(src)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-p.Batches():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("batch channel not closed after cancel")
		}
	}
}
