// Package frame drives guest instances one tick at a time.
//
// A tick is synchronous: the next one is never issued before the previous
// call returns. Stepper ticks on demand; Ticker ticks at a fixed rate
// until it is cancelled, reaches its frame limit or a tick fails.
package frame

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Target is ticked once per frame. runtime.Instance implements it.
type Target interface {
	Tick(ctx context.Context) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context) error

func (f TargetFunc) Tick(ctx context.Context) error { return f(ctx) }

// Stepper ticks a target on demand.
type Stepper struct {
	target Target
	frames uint64
}

// NewStepper creates a stepper for target.
func NewStepper(target Target) *Stepper {
	return &Stepper{target: target}
}

// Step runs one frame.
func (s *Stepper) Step(ctx context.Context) error {
	if err := s.target.Tick(ctx); err != nil {
		return err
	}
	s.frames++
	return nil
}

// Run runs n frames, stopping at the first error.
func (s *Stepper) Run(ctx context.Context, n int) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Frames returns the number of frames that completed.
func (s *Stepper) Frames() uint64 {
	return s.frames
}

// DefaultTPS is the tick rate of a Ticker with TPS unset.
const DefaultTPS = 60

// Ticker ticks a target at a fixed rate. Ticks that would fall due while a
// frame is still running are dropped, not queued.
type Ticker struct {
	// TPS is the number of ticks per second. Zero selects DefaultTPS.
	TPS int
	// MaxFrames stops the loop after that many completed frames.
	// Zero runs until cancelled.
	MaxFrames uint64
	// OnError is called with a failed tick. Returning true keeps the loop
	// running. Nil stops at the first failure.
	OnError func(frame uint64, err error) bool
	// OnFrame is called after every completed frame.
	OnFrame func(frame uint64)
	// Logger receives loop start and stop records. Nil disables logging.
	Logger *zap.Logger
}

// Period returns the interval between ticks.
func (t *Ticker) Period() time.Duration {
	tps := t.TPS
	if tps <= 0 {
		tps = DefaultTPS
	}
	return time.Second / time.Duration(tps)
}

// Run ticks target until ctx is done, MaxFrames is reached or a tick fails
// without OnError asking to continue. It returns nil on reaching
// MaxFrames, ctx.Err() on cancellation and the tick error otherwise.
func (t *Ticker) Run(ctx context.Context, target Target) error {
	log := t.Logger
	if log == nil {
		log = zap.NewNop()
	}
	period := t.Period()
	log.Debug("frame loop started", zap.Duration("period", period), zap.Uint64("max_frames", t.MaxFrames))

	tick := time.NewTicker(period)
	defer tick.Stop()

	var frames uint64
	for t.MaxFrames == 0 || frames < t.MaxFrames {
		if err := target.Tick(ctx); err != nil {
			if t.OnError == nil || !t.OnError(frames, err) {
				log.Debug("frame loop stopped", zap.Uint64("frames", frames), zap.Error(err))
				return err
			}
		} else {
			frames++
			if t.OnFrame != nil {
				t.OnFrame(frames)
			}
		}
		if t.MaxFrames != 0 && frames >= t.MaxFrames {
			break
		}
		select {
		case <-ctx.Done():
			log.Debug("frame loop cancelled", zap.Uint64("frames", frames))
			return ctx.Err()
		case <-tick.C:
		}
	}
	log.Debug("frame loop finished", zap.Uint64("frames", frames))
	return nil
}
