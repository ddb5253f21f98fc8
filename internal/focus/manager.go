// Package focus fans focus changes out to any number of subscribers and
// raises windows by PID.
package focus

import (
	"slices"
	"sync"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/bryanchriswhite/pidfocus/internal/watcher"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/rs/zerolog"
)

// EventKind names an event delivered to subscribers
type EventKind string

const (
	EventPIDChanged     EventKind = "pid-changed"
	EventWatcherStarted EventKind = "watcher-started"
	EventWatcherStopped EventKind = "watcher-stopped"
)

// listenerBuffer is the per-subscriber channel capacity.
const listenerBuffer = 10

// Event is what subscribers receive
type Event struct {
	Kind    EventKind     `json:"event"`
	PID     int           `json:"pid,omitempty"`
	Process *process.Info `json:"process,omitempty"`
	Time    time.Time     `json:"time"`
}

// Describer adds process details to pid-changed events.
type Describer interface {
	Lookup(pid int) (process.Info, error)
}

type listener struct {
	ch    chan Event
	kinds []EventKind // empty means every kind
}

func (l listener) wants(kind EventKind) bool {
	return len(l.kinds) == 0 || slices.Contains(l.kinds, kind)
}

// Manager owns the focus watcher and starts it only while someone listens
// for pid-changed events.
type Manager struct {
	watcher   *watcher.Watcher
	dial      window.Dialer
	describer Describer
	log       *zerolog.Logger

	mu         sync.Mutex
	listeners  []listener
	watching   bool
	currentPID int
	// run counts watcher starts; callbacks carry the run they belong to
	run uint64
}

// Option configures a Manager
type Option func(*Manager)

// WithDescriber enables process details on pid-changed events.
func WithDescriber(d Describer) Option {
	return func(m *Manager) {
		m.describer = d
	}
}

// NewManager creates a focus manager. w polls focus; dial opens the
// short-lived connections used by SetFocus.
func NewManager(w *watcher.Watcher, dial window.Dialer, opts ...Option) *Manager {
	m := &Manager{
		watcher: w,
		dial:    dial,
		log:     logger.WithComponent("focus"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe adds a listener for the given kinds (all kinds when none given).
// The first listener for pid-changed starts the watcher.
func (m *Manager) Subscribe(kinds ...EventKind) (chan Event, error) {
	l := listener{
		ch:    make(chan Event, listenerBuffer),
		kinds: kinds,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, l)
	if !l.wants(EventPIDChanged) || m.watching {
		return l.ch, nil
	}

	run := m.run + 1
	if err := m.watcher.Start(func(pid int) { m.onPID(run, pid) }); err != nil {
		m.listeners = m.listeners[:len(m.listeners)-1]
		close(l.ch)
		return nil, err
	}
	m.run = run
	m.watching = true
	m.log.Debug().Msg("Focus watcher started for first subscriber")
	m.notifyLocked(Event{Kind: EventWatcherStarted, Time: time.Now()})

	return l.ch, nil
}

// Unsubscribe removes a listener and closes its channel. When no listener
// for pid-changed remains the watcher is stopped.
func (m *Manager) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.listeners, func(l listener) bool { return l.ch == ch })
	if i < 0 {
		return
	}
	m.listeners = slices.Delete(m.listeners, i, i+1)
	close(ch)

	if m.watching && !m.hasPIDListenerLocked() {
		m.stopLocked()
	}
}

// Close stops the watcher and closes every subscriber channel.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		m.stopLocked()
	}
	for _, l := range m.listeners {
		close(l.ch)
	}
	m.listeners = nil
}

// IsWatching reports whether the watcher is running.
func (m *Manager) IsWatching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watching
}

// CurrentPID returns the last PID reported by the watcher, or 0.
func (m *Manager) CurrentPID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPID
}

// SetFocus asks the window manager to focus the window owned by pid.
func (m *Manager) SetFocus(pid int) error {
	return window.FocusWindowOfProcess(m.dial, pid)
}

func (m *Manager) hasPIDListenerLocked() bool {
	return slices.ContainsFunc(m.listeners, func(l listener) bool {
		return l.wants(EventPIDChanged)
	})
}

func (m *Manager) stopLocked() {
	m.watcher.Stop()
	m.watching = false
	m.log.Debug().Msg("Focus watcher stopped, no subscribers left")
	m.notifyLocked(Event{Kind: EventWatcherStopped, Time: time.Now()})
}

// onPID runs on the watcher's callback goroutine. Stop does not wait for
// queued events, so events from an earlier run are dropped here.
func (m *Manager) onPID(run uint64, pid int) {
	ev := Event{Kind: EventPIDChanged, PID: pid, Time: time.Now()}
	if m.describer != nil {
		if info, err := m.describer.Lookup(pid); err == nil {
			ev.Process = &info
		} else {
			m.log.Debug().Err(err).Int("pid", pid).Msg("No process details")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.watching || run != m.run {
		m.log.Debug().Int("pid", pid).Msg("Event from a stopped watcher run skipped")
		return
	}
	m.currentPID = pid
	m.notifyLocked(ev)
}

// notifyLocked notifies all listeners of an event
func (m *Manager) notifyLocked(ev Event) {
	for _, l := range m.listeners {
		if !l.wants(ev.Kind) {
			continue
		}
		select {
		case l.ch <- ev:
		default:
			// Skip if channel is full
			m.log.Debug().Str("event", string(ev.Kind)).Msg("Subscriber channel full, event skipped")
		}
	}
}
