package picker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Flynotfly/gymstat/internal/training"
)

const DefaultDebounce = 200 * time.Millisecond

// Debouncer coalesces bursts of input into one call with the last value,
// made once the input was idle for the configured wait.
type Debouncer struct {
	wait time.Duration
	fn   func(text string)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(wait time.Duration, fn func(text string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{
		wait: wait,
		fn:   fn,
	}
}

func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() {
		d.fn(text)
	})
}

// Stop cancels a pending call. Later input is ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// SearchDebouncer returns a Debouncer running Search with the last input.
// Stale results are swallowed; done receives everything else.
func (p *Picker) SearchDebouncer(ctx context.Context, wait time.Duration, done func([]training.ExerciseTemplate, error)) *Debouncer {
	return NewDebouncer(wait, func(text string) {
		opts, err := p.Search(ctx, text)
		if errors.Is(err, ErrStaleResponse) {
			return
		}
		if done != nil {
			done(opts, err)
		}
	})
}
