package window

import (
	"fmt"
	"sync/atomic"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/pidfocus/internal/logger"
)

// XConn implements Conn on top of an xgb connection
type XConn struct {
	conn    *xgb.Conn
	root    xproto.Window
	display string
	closed  atomic.Bool
}

var _ Conn = (*XConn)(nil)

// Dial connects to the X server. An empty display uses $DISPLAY.
func Dial(display string) (*XConn, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	logger.WithComponent("window").Debug().
		Str("display", display).
		Uint32("root", uint32(root)).
		Msg("Connected to X server")

	return &XConn{
		conn:    conn,
		root:    root,
		display: display,
	}, nil
}

// Root returns the root window
func (c *XConn) Root() xproto.Window {
	return c.root
}

// InternAtom gets an atom ID by name
func (c *XConn) InternAtom(name string, onlyIfExists bool) (xproto.Atom, error) {
	if c.closed.Load() {
		return xproto.AtomNone, ErrClosed
	}
	reply, err := xproto.InternAtom(c.conn, onlyIfExists, uint16(len(name)), name).Reply()
	if err != nil {
		return xproto.AtomNone, err
	}
	return reply.Atom, nil
}

// GetProperty reads a window property
func (c *XConn) GetProperty(win xproto.Window, prop, typ xproto.Atom, offset, length uint32) (*xproto.GetPropertyReply, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return xproto.GetProperty(c.conn, false, win, prop, typ, offset, length).Reply()
}

// QueryTree lists the children of a window
func (c *XConn) QueryTree(win xproto.Window) (*xproto.QueryTreeReply, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return xproto.QueryTree(c.conn, win).Reply()
}

// InputFocus returns the currently focused window.
// PointerRoot focus is reported as no window.
func (c *XConn) InputFocus() (xproto.Window, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Focus == xproto.InputFocusPointerRoot {
		return 0, nil
	}
	return reply.Focus, nil
}

// SendEvent sends an unchecked SendEvent request
func (c *XConn) SendEvent(propagate bool, dest xproto.Window, mask uint32, event []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	xproto.SendEvent(c.conn, propagate, dest, mask, string(event))
	return nil
}

// Flush makes a round trip so every request sent before it has been
// processed by the server. xgb has no explicit flush.
func (c *XConn) Flush() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if _, err := xproto.GetInputFocus(c.conn).Reply(); err != nil {
		return fmt.Errorf("failed to flush X11 requests: %w", err)
	}
	return nil
}

// Close closes the X11 connection. Calling it twice is harmless.
func (c *XConn) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.conn.Close()
}
