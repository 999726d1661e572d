package presenter

import (
	"context"
	"sync"
	"time"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
)

// DefaultTickInterval is how often a runner samples elapsed time
const DefaultTickInterval = 100 * time.Millisecond

// Runner drives one replica: it ticks elapsed time and applies messages from
// the other windows until stopped. Stop releases the ticker and both
// subscriptions.
type Runner struct {
	p        *Presentation
	bus      broadcast.Bus
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRunner creates a runner for p on bus
func NewRunner(p *Presentation, bus broadcast.Bus, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{p: p, bus: bus, interval: interval}
}

// Start subscribes before returning, so no message published afterwards is
// missed, and runs the loop in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	state := r.bus.Subscribe(broadcast.TopicState)
	notes := r.bus.Subscribe(broadcast.TopicNotes)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer state.Close()
		defer notes.Close()
		r.loop(ctx, state, notes)
	}()
}

func (r *Runner) loop(ctx context.Context, state, notes *broadcast.Subscription) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// one sample per tick; Tick fires auto-advance at most once
			r.p.Tick(now.Sub(last))
			last = now
		case msg, ok := <-state.C():
			if !ok {
				return
			}
			r.p.Receive(msg)
		case msg, ok := <-notes.C():
			if !ok {
				return
			}
			r.p.Receive(msg)
		}
	}
}

// Stop cancels the loop and waits for it to exit
func (r *Runner) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
	r.wg.Wait()
}
