package focus

import (
	"errors"
	"testing"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/pidfocus/internal/process"
	"github.com/bryanchriswhite/pidfocus/internal/watcher"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/bryanchriswhite/pidfocus/internal/window/windowtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root xproto.Window = 1

type fakeDescriber map[int]process.Info

func (f fakeDescriber) Lookup(pid int) (process.Info, error) {
	info, ok := f[pid]
	if !ok {
		return process.Info{}, errors.New("no such process")
	}
	return info, nil
}

func newTestManager(t *testing.T, conn *windowtest.Conn, opts ...Option) *Manager {
	t.Helper()
	nop := zerolog.Nop()
	w := watcher.New(
		watcher.WithDialer(conn.Dialer()),
		watcher.WithInterval(time.Millisecond),
		watcher.WithLogger(&nop),
	)
	m := NewManager(w, conn.Dialer(), opts...)
	t.Cleanup(m.Close)
	return m
}

func next(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_FirstSubscriberStartsWatcher(t *testing.T) {
	conn := windowtest.New(root).
		Add(root, 10, windowtest.Node{PID: 100}).
		Add(root, 20, windowtest.Node{PID: 200}).
		ScriptFocus(10, 10, 20)
	m := newTestManager(t, conn)

	assert.False(t, m.IsWatching())

	ch, err := m.Subscribe()
	require.NoError(t, err)
	assert.True(t, m.IsWatching())

	assert.Equal(t, EventWatcherStarted, next(t, ch).Kind)

	ev := next(t, ch)
	assert.Equal(t, EventPIDChanged, ev.Kind)
	assert.Equal(t, 100, ev.PID)
	assert.False(t, ev.Time.IsZero())

	ev = next(t, ch)
	assert.Equal(t, 200, ev.PID)
	assert.Equal(t, 200, m.CurrentPID())
}

func TestManager_LastUnsubscribeStopsWatcher(t *testing.T) {
	conn := windowtest.New(root)
	m := newTestManager(t, conn)

	lifecycle, err := m.Subscribe(EventWatcherStarted, EventWatcherStopped)
	require.NoError(t, err)
	assert.False(t, m.IsWatching(), "lifecycle listeners do not start the watcher")

	a, err := m.Subscribe(EventPIDChanged)
	require.NoError(t, err)
	b, err := m.Subscribe()
	require.NoError(t, err)
	assert.Equal(t, EventWatcherStarted, next(t, lifecycle).Kind)
	require.Eventually(t, func() bool { return conn.Dials() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, conn.Dials(), "one watcher for many subscribers")

	m.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open, "unsubscribed channel is closed")
	assert.True(t, m.IsWatching())

	m.Unsubscribe(b)
	assert.False(t, m.IsWatching())
	assert.Equal(t, EventWatcherStopped, next(t, lifecycle).Kind)
	assert.True(t, conn.Closed())

	// unknown channel is ignored
	m.Unsubscribe(make(chan Event))
}

func TestManager_ResubscribeRestartsWatcher(t *testing.T) {
	conn := windowtest.New(root)
	m := newTestManager(t, conn)

	ch, err := m.Subscribe()
	require.NoError(t, err)
	m.Unsubscribe(ch)

	ch, err = m.Subscribe()
	require.NoError(t, err)
	assert.True(t, m.IsWatching())
	assert.Equal(t, EventWatcherStarted, next(t, ch).Kind)
	require.Eventually(t, func() bool { return conn.Dials() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_SubscribeFailsWhenAnotherWatcherRuns(t *testing.T) {
	nop := zerolog.Nop()
	other := watcher.New(watcher.WithDialer(windowtest.New(root).Dialer()), watcher.WithLogger(&nop))
	require.NoError(t, other.Start(func(int) {}))
	t.Cleanup(other.Stop)

	m := newTestManager(t, windowtest.New(root))

	_, err := m.Subscribe()
	assert.ErrorIs(t, err, watcher.ErrAlreadyWatching)
	assert.False(t, m.IsWatching())
}

func TestManager_ProcessDetails(t *testing.T) {
	conn := windowtest.New(root).
		Add(root, 10, windowtest.Node{PID: 100}).
		Add(root, 20, windowtest.Node{PID: 200}).
		ScriptFocus(10, 20)
	m := newTestManager(t, conn, WithDescriber(fakeDescriber{
		100: {PID: 100, Comm: "firefox"},
	}))

	ch, err := m.Subscribe(EventPIDChanged)
	require.NoError(t, err)

	ev := next(t, ch)
	require.NotNil(t, ev.Process)
	assert.Equal(t, "firefox", ev.Process.Comm)

	ev = next(t, ch)
	assert.Equal(t, 200, ev.PID)
	assert.Nil(t, ev.Process, "lookup failure still emits the event")
}

func TestManager_SetFocus(t *testing.T) {
	conn := windowtest.New(root).Add(root, 10, windowtest.Node{PID: 100})
	m := newTestManager(t, conn)

	require.NoError(t, m.SetFocus(100))
	assert.Len(t, conn.Sent(), 1)

	assert.ErrorIs(t, m.SetFocus(0), window.ErrInvalidPID)
	assert.ErrorIs(t, m.SetFocus(-3), window.ErrInvalidPID)
}

func TestManager_CloseClosesSubscribers(t *testing.T) {
	conn := windowtest.New(root)
	m := newTestManager(t, conn)

	ch, err := m.Subscribe(EventPIDChanged)
	require.NoError(t, err)

	m.Close()
	assert.False(t, m.IsWatching())
	_, open := <-ch
	assert.False(t, open)
}

func TestManager_DropsEventsFromStoppedRun(t *testing.T) {
	conn := windowtest.New(root)
	m := newTestManager(t, conn)

	ch, err := m.Subscribe(EventPIDChanged)
	require.NoError(t, err)
	m.Unsubscribe(ch)

	// late delivery from the stopped first run
	m.onPID(1, 999)
	assert.Zero(t, m.CurrentPID())

	ch, err = m.Subscribe(EventPIDChanged)
	require.NoError(t, err)

	m.onPID(1, 999)
	assert.Zero(t, m.CurrentPID(), "first run's event after a restart")
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	m.onPID(2, 42)
	assert.Equal(t, 42, m.CurrentPID())
	assert.Equal(t, 42, next(t, ch).PID)
}
