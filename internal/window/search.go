package window

import (
	"github.com/BurntSushi/xgb/xproto"
)

// FindWindowOwnedBy walks the window tree under root depth-first and returns
// the first window whose _NET_WM_PID equals pid, or 0.
//
// A window that matches is returned without looking at its children, so the
// shallowest match wins: top-level client windows beat their subwindows.
func FindWindowOwnedBy(conn Conn, root xproto.Window, pid int) xproto.Window {
	if conn == nil || pid <= 0 {
		return 0
	}
	return findWindowOwnedBy(conn, root, pid)
}

func findWindowOwnedBy(conn Conn, win xproto.Window, pid int) xproto.Window {
	if ResolvePID(conn, win) == pid {
		return win
	}

	tree, err := conn.QueryTree(win)
	if err != nil || tree == nil || len(tree.Children) == 0 {
		return 0
	}

	for _, child := range tree.Children {
		if found := findWindowOwnedBy(conn, child, pid); found != 0 {
			return found
		}
	}

	return 0
}
