package watcher

// noPID is never a real PID, so the first resolved PID always differs from it.
const noPID = -1

// edge turns a stream of polled PIDs into change events.
type edge struct {
	last int
}

func newEdge() *edge {
	return &edge{last: noPID}
}

// observe reports whether pid should be emitted. Unresolvable polls (0)
// carry no information and leave the last seen PID untouched, so a PID seen
// again after a gap is not a change.
func (e *edge) observe(pid int) bool {
	if pid == 0 || pid == e.last {
		return false
	}
	e.last = pid
	return true
}
