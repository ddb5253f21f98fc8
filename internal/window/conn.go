package window

import (
	"errors"

	"github.com/BurntSushi/xgb/xproto"
)

var (
	// ErrClosed is returned by requests issued on a closed connection.
	ErrClosed = errors.New("display connection closed")

	// ErrDisplayUnavailable means no connection to the X server could be opened.
	ErrDisplayUnavailable = errors.New("cannot open X11 display")

	// ErrInvalidPID is returned for PIDs that can never own a window (<= 0).
	ErrInvalidPID = errors.New("a valid PID (positive number) is required")
)

// Conn is the subset of the X11 core protocol used to map windows to
// processes and back. A Conn belongs to a single goroutine.
type Conn interface {
	// Root returns the root window of the default screen.
	Root() xproto.Window

	// InternAtom resolves name to an atom. With onlyIfExists set, a name the
	// server has never seen yields xproto.AtomNone instead of a new atom.
	InternAtom(name string, onlyIfExists bool) (xproto.Atom, error)

	// GetProperty reads length 32-bit units of prop starting at offset.
	GetProperty(win xproto.Window, prop, typ xproto.Atom, offset, length uint32) (*xproto.GetPropertyReply, error)

	// QueryTree returns the parent and children of win.
	QueryTree(win xproto.Window) (*xproto.QueryTreeReply, error)

	// InputFocus returns the window that currently holds input focus.
	InputFocus() (xproto.Window, error)

	// SendEvent queues an encoded event for dest without waiting for a reply.
	SendEvent(propagate bool, dest xproto.Window, mask uint32, event []byte) error

	// Flush blocks until every queued request has reached the server.
	Flush() error

	Close()
}

// Dialer opens a new Conn. Each caller gets its own connection.
type Dialer func() (Conn, error)

// DisplayDialer returns a Dialer for the named display ("" means $DISPLAY).
func DisplayDialer(display string) Dialer {
	return func() (Conn, error) {
		return Dial(display)
	}
}
