package window

import (
	"fmt"

	"github.com/bryanchriswhite/pidfocus/internal/logger"
)

// FocusWindowOfProcess raises the first window owned by pid, using a
// connection opened for this call only.
//
// Not finding a window is not an error. Neither is a window manager that
// ignores the request.
func FocusWindowOfProcess(dial Dialer, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPID, pid)
	}

	conn, err := dial()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer conn.Close()

	log := logger.WithComponent("window")

	target := FindWindowOwnedBy(conn, conn.Root(), pid)
	if target == 0 {
		log.Debug().Int("pid", pid).Msg("No window owned by process")
		return nil
	}

	if err := RequestActivate(conn, target); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return err
	}

	log.Debug().
		Int("pid", pid).
		Uint32("window", uint32(target)).
		Msg("Requested window activation")
	return nil
}

// QueryFocusedPID returns the PID owning the focused window using a
// connection opened for this call only. 0 means focus is unknown.
func QueryFocusedPID(dial Dialer) (int, error) {
	conn, err := dial()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDisplayUnavailable, err)
	}
	defer conn.Close()

	return FocusedPID(conn), nil
}
