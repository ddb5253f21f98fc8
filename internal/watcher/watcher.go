// Package watcher polls X11 input focus and reports the owning process
// whenever it changes.
package watcher

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the pause between two focus polls.
	DefaultInterval = 250 * time.Millisecond

	// DefaultBufferSize bounds the events waiting for the callback.
	DefaultBufferSize = 64
)

var (
	// ErrNilCallback is returned by Start when no callback is given.
	ErrNilCallback = errors.New("a callback function is required")

	// ErrAlreadyWatching is returned by Start while another Watcher is running.
	ErrAlreadyWatching = errors.New("another focus watcher is already running")
)

// active holds the running Watcher. At most one runs per process.
var active atomic.Pointer[Watcher]

// Option configures a Watcher
type Option func(*Watcher)

// WithDialer sets how the polling goroutine connects to the X server.
func WithDialer(dial window.Dialer) Option {
	return func(w *Watcher) {
		w.dial = dial
	}
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBufferSize sets how many events may wait for the callback before new
// ones are dropped.
func WithBufferSize(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// Watcher reports focus changes as PIDs. The zero value is not usable; use New.
type Watcher struct {
	dial       window.Dialer
	interval   time.Duration
	bufferSize int
	log        *zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopFlag atomic.Bool
	wake     chan struct{}
	done     chan struct{}
	bridge   *bridge
}

// New creates a stopped Watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		dial:       window.DisplayDialer(""),
		interval:   DefaultInterval,
		bufferSize: DefaultBufferSize,
		log:        logger.WithComponent("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling goroutine. callback receives every new PID, in
// order, on a dedicated goroutine; it never runs on the polling goroutine.
//
// Starting a running Watcher does nothing and keeps the first callback.
func (w *Watcher) Start(callback func(pid int)) error {
	if callback == nil {
		return ErrNilCallback
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if !active.CompareAndSwap(nil, w) {
		return ErrAlreadyWatching
	}

	w.bridge = newBridge(callback, w.bufferSize, w.log)
	w.stopFlag.Store(false)
	w.wake = make(chan struct{})
	w.done = make(chan struct{})

	go w.poll(w.bridge, w.wake, w.done)

	w.running = true
	w.log.Info().Dur("interval", w.interval).Msg("Focus watcher started")
	return nil
}

// Stop waits for the polling goroutine to exit. Events already queued are
// still delivered. Stopping a stopped Watcher does nothing.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.stopFlag.Store(true)
	close(w.wake)
	<-w.done

	w.bridge.release()
	w.bridge = nil
	w.running = false
	active.CompareAndSwap(w, nil)

	w.log.Info().Msg("Focus watcher stopped")
}

// Running reports whether Start has been called without a matching Stop.
// A watcher whose display connection failed still counts as running.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// poll owns its display connection for its whole life.
func (w *Watcher) poll(b *bridge, wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	conn, err := w.dial()
	if err != nil {
		w.log.Error().Err(err).
			Msg("FATAL: cannot open X11 display in watcher goroutine, no focus events until restarted")
		return
	}
	defer conn.Close()

	edge := newEdge()
	for !w.stopFlag.Load() {
		pid := window.FocusedPID(conn)
		if edge.observe(pid) {
			w.log.Debug().Int("pid", pid).Msg("Focus moved to new process")
			b.post(pid)
		}

		// full interval after every poll, however long the poll took
		timer := time.NewTimer(w.interval)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
