package pinball

import (
	"context"
	"errors"
	"log"
	"time"
)

// Observer receives a snapshot every few ticks.
type Observer func(Snapshot)

// Runner steps a session on a fixed-rate ticker.
type Runner struct {
	session   *Session
	interval  time.Duration
	every     int
	observers []Observer
}

// NewRunner steps s at its configured rate and broadcasts a snapshot to the
// observers every broadcastEvery ticks.
func NewRunner(s *Session, broadcastEvery int) *Runner {
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	return &Runner{
		session:  s,
		interval: s.Options().StepInterval(),
		every:    broadcastEvery,
	}
}

// Observe registers fn. Call before Run.
func (r *Runner) Observe(fn Observer) {
	r.observers = append(r.observers, fn)
}

// Run blocks until ctx is done or the session fails. A failed session still
// gets a final broadcast so observers see the FAILED status.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := r.session.Step()
			n++
			if err != nil {
				r.broadcast()
				return err
			}
			if n%r.every == 0 {
				r.broadcast()
			}
		}
	}
}

// Start runs the loop in a goroutine and logs how it ended.
func (r *Runner) Start(ctx context.Context) {
	log.Printf("[PINBALL] Runner started (interval=%s, broadcast every %d ticks)", r.interval, r.every)
	go func() {
		err := r.Run(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Println("[PINBALL] Runner stopping")
		default:
			log.Printf("[PINBALL] Runner stopped: %v", err)
		}
	}()
}

func (r *Runner) broadcast() {
	if len(r.observers) == 0 {
		return
	}
	snap := r.session.Snapshot()
	for _, fn := range r.observers {
		fn(snap)
	}
}
