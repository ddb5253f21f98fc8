package window

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

const (
	// _NET_ACTIVE_WINDOW source indication: 1 = application, 2 = pager.
	sourceApplication = 1

	activateEventMask = xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify
)

// RequestActivate asks the window manager to raise and focus win by sending a
// _NET_ACTIVE_WINDOW client message to the root window.
//
// The request is not checked: a window manager that ignores it produces no
// error. The caller must Flush before closing conn.
func RequestActivate(conn Conn, win xproto.Window) error {
	activeAtom, err := conn.InternAtom(atomActiveWindow, false)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atomActiveWindow, err)
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   activeAtom,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			sourceApplication,
			xproto.TimeCurrentTime,
			0, // currently active window, unknown
			0,
			0,
		}),
	}

	return conn.SendEvent(false, conn.Root(), activateEventMask, ev.Bytes())
}
