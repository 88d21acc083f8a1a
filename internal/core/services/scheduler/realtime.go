package scheduler

import (
	"context"
	"time"
)

// RealTime paces a Simulator against the wall clock so that an event due at
// simulated time t runs t after Run was called.
type RealTime struct {
	sim *Simulator
}

// NewRealTime wraps a simulator.
func NewRealTime(sim *Simulator) *RealTime {
	return &RealTime{sim: sim}
}

// Run drives the simulator until ctx is done.
func (r *RealTime) Run(ctx context.Context) error {
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, ok := r.sim.NextTime()
		if ok {
			wait := next - time.Since(start)
			if wait <= 0 {
				r.sim.Step()
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-r.sim.Wake():
			case <-timer.C:
			}
			timer.Stop()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.sim.Wake():
		}
	}
}
