package bus

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFocus struct {
	mu          sync.Mutex
	setErr      error
	focused     []int
	current     int
	watching    bool
	ch          chan focus.Event
	kinds       []focus.EventKind
	unsubscribe int
}

func (f *fakeFocus) SetFocus(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = append(f.focused, pid)
	return f.setErr
}

func (f *fakeFocus) CurrentPID() int  { return f.current }
func (f *fakeFocus) IsWatching() bool { return f.watching }

func (f *fakeFocus) Subscribe(kinds ...focus.EventKind) (chan focus.Event, error) {
	f.kinds = kinds
	f.ch = make(chan focus.Event, 4)
	return f.ch, nil
}

func (f *fakeFocus) Unsubscribe(ch chan focus.Event) {
	f.unsubscribe++
	close(ch)
}

type signal struct {
	path dbus.ObjectPath
	name string
	body []interface{}
}

type fakeEmitter struct {
	mu      sync.Mutex
	signals []signal
}

func (e *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signals = append(e.signals, signal{path, name, values})
	return nil
}

func (e *fakeEmitter) get() []signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]signal{}, e.signals...)
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestObject_FocusPID(t *testing.T) {
	f := &fakeFocus{}
	obj := &object{focus: f, log: nopLogger()}

	assert.Nil(t, obj.FocusPID(42))
	assert.Equal(t, []int{42}, f.focused)
}

func TestObject_FocusPIDErrors(t *testing.T) {
	cases := []struct {
		err  error
		name string
	}{
		{fmt.Errorf("%w: got 0", window.ErrInvalidPID), ErrNameInvalidPID},
		{fmt.Errorf("%w: no DISPLAY", window.ErrDisplayUnavailable), ErrNameDisplayUnavailable},
		{errors.New("boom"), ErrNameFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj := &object{focus: &fakeFocus{setErr: tc.err}, log: nopLogger()}

			derr := obj.FocusPID(1)
			require.NotNil(t, derr)
			assert.Equal(t, tc.name, derr.Name)
			assert.Equal(t, []interface{}{tc.err.Error()}, derr.Body)
		})
	}
}

func TestObject_State(t *testing.T) {
	obj := &object{focus: &fakeFocus{current: 321, watching: true}, log: nopLogger()}

	pid, derr := obj.CurrentPID()
	assert.Nil(t, derr)
	assert.Equal(t, int32(321), pid)

	watching, derr := obj.IsWatching()
	assert.Nil(t, derr)
	assert.True(t, watching)
}

func TestIntrospection(t *testing.T) {
	node := introspection(&object{})

	require.Len(t, node.Interfaces, 2)
	iface := node.Interfaces[1]
	assert.Equal(t, Interface, iface.Name)

	var methods []string
	for _, m := range iface.Methods {
		methods = append(methods, m.Name)
	}
	assert.ElementsMatch(t, []string{"FocusPID", "CurrentPID", "IsWatching"}, methods)
	require.Len(t, iface.Signals, 1)
	assert.Equal(t, "PidChanged", iface.Signals[0].Name)
}

func TestService_EmitsPidChanged(t *testing.T) {
	f := &fakeFocus{}
	emit := &fakeEmitter{}

	s, err := newService(emit, f, nopLogger())
	require.NoError(t, err)
	assert.Equal(t, []focus.EventKind{focus.EventPIDChanged}, f.kinds)

	f.ch <- focus.Event{Kind: focus.EventPIDChanged, PID: 7}
	f.ch <- focus.Event{Kind: focus.EventPIDChanged, PID: 9}

	require.Eventually(t, func() bool { return len(emit.get()) == 2 }, 2*time.Second, 5*time.Millisecond)
	got := emit.get()
	assert.Equal(t, ObjectPath, got[0].path)
	assert.Equal(t, Interface+".PidChanged", got[0].name)
	assert.Equal(t, []interface{}{int32(7)}, got[0].body)
	assert.Equal(t, []interface{}{int32(9)}, got[1].body)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, f.unsubscribe)
}
