package window

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// EWMH names, fixed by the window manager specification.
const (
	atomWmPid        = "_NET_WM_PID"
	atomActiveWindow = "_NET_ACTIVE_WINDOW"
)

// ResolvePID returns the PID stored in the window's _NET_WM_PID property.
// It returns 0 whenever the answer is unknown: no connection, no window, an
// undefined atom, a missing property or one that is not a 32-bit CARDINAL.
func ResolvePID(conn Conn, win xproto.Window) int {
	if conn == nil || win == 0 {
		return 0
	}

	// Don't create the atom: if nobody set it, no window carries the property.
	pidAtom, err := conn.InternAtom(atomWmPid, true)
	if err != nil || pidAtom == xproto.AtomNone {
		return 0
	}

	reply, err := conn.GetProperty(win, pidAtom, xproto.AtomCardinal, 0, 1)
	if err != nil || reply == nil {
		return 0
	}
	if reply.Type != xproto.AtomCardinal || reply.Format != 32 ||
		reply.ValueLen == 0 || len(reply.Value) < 4 {
		return 0
	}

	return int(xgb.Get32(reply.Value))
}

// FocusedPID returns the PID owning the window that holds input focus, or 0.
func FocusedPID(conn Conn) int {
	if conn == nil {
		return 0
	}
	win, err := conn.InputFocus()
	if err != nil {
		return 0
	}
	return ResolvePID(conn, win)
}
