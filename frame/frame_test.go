package frame

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	calls   int
	failOn  map[int]bool
	active  atomic.Bool
	overlap bool
}

var errFrame = errors.New("frame failed")

func (c *counter) Tick(context.Context) error {
	if !c.active.CompareAndSwap(false, true) {
		c.overlap = true
	}
	defer c.active.Store(false)
	c.calls++
	if c.failOn[c.calls] {
		return errFrame
	}
	return nil
}

func TestStepper(t *testing.T) {
	c := &counter{failOn: map[int]bool{4: true}}
	s := NewStepper(c)
	ctx := context.Background()

	if err := s.Run(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 3 {
		t.Errorf("Frames = %d", s.Frames())
	}
	if err := s.Step(ctx); !errors.Is(err, errFrame) {
		t.Errorf("Step = %v", err)
	}
	if s.Frames() != 3 {
		t.Errorf("failed step counted: %d", s.Frames())
	}
	if err := s.Run(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 5 || c.calls != 6 {
		t.Errorf("Frames = %d, calls = %d", s.Frames(), c.calls)
	}
}

func TestStepper_Cancelled(t *testing.T) {
	c := &counter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewStepper(c).Run(ctx, 3); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v", err)
	}
	if c.calls != 0 {
		t.Errorf("calls = %d", c.calls)
	}
}

func TestTicker_MaxFrames(t *testing.T) {
	c := &counter{}
	var seen []uint64
	tk := &Ticker{TPS: 1000, MaxFrames: 5, OnFrame: func(n uint64) { seen = append(seen, n) }}
	if err := tk.Run(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if c.calls != 5 || len(seen) != 5 || seen[4] != 5 {
		t.Errorf("calls = %d, frames = %v", c.calls, seen)
	}
	if c.overlap {
		t.Error("ticks overlapped")
	}
}

func TestTicker_StopsOnError(t *testing.T) {
	c := &counter{failOn: map[int]bool{2: true}}
	tk := &Ticker{TPS: 1000, MaxFrames: 10}
	if err := tk.Run(context.Background(), c); !errors.Is(err, errFrame) {
		t.Errorf("Run = %v", err)
	}
	if c.calls != 2 {
		t.Errorf("calls = %d", c.calls)
	}
}

func TestTicker_ContinuesWhenAsked(t *testing.T) {
	c := &counter{failOn: map[int]bool{2: true, 3: true}}
	var failed []uint64
	tk := &Ticker{
		TPS:       1000,
		MaxFrames: 3,
		OnError: func(frame uint64, err error) bool {
			failed = append(failed, frame)
			return true
		},
	}
	if err := tk.Run(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if c.calls != 5 {
		t.Errorf("calls = %d, want 5", c.calls)
	}
	if len(failed) != 2 || failed[0] != 1 || failed[1] != 1 {
		t.Errorf("failed = %v", failed)
	}
}

func TestTicker_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	tk := &Ticker{TPS: 100}
	err := tk.Run(ctx, TargetFunc(func(context.Context) error { return nil }))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v", err)
	}
}

func TestTicker_Period(t *testing.T) {
	if p := (&Ticker{}).Period(); p != time.Second/DefaultTPS {
		t.Errorf("default period = %v", p)
	}
	if p := (&Ticker{TPS: 10}).Period(); p != 100*time.Millisecond {
		t.Errorf("period = %v", p)
	}
}
