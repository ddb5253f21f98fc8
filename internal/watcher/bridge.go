package watcher

import (
	"github.com/rs/zerolog"
)

// bridge hands PIDs from the polling goroutine to the callback goroutine.
type bridge struct {
	queue    chan int
	callback func(pid int)
	log      *zerolog.Logger
	finished chan struct{}
}

func newBridge(callback func(pid int), size int, log *zerolog.Logger) *bridge {
	b := &bridge{
		queue:    make(chan int, size),
		callback: callback,
		log:      log,
		finished: make(chan struct{}),
	}
	go b.deliver()
	return b
}

func (b *bridge) deliver() {
	defer close(b.finished)
	for pid := range b.queue {
		b.callback(pid)
	}
}

// post never blocks. A full queue drops pid.
func (b *bridge) post(pid int) bool {
	select {
	case b.queue <- pid:
		return true
	default:
		b.log.Warn().Int("pid", pid).Int("capacity", cap(b.queue)).
			Msg("Focus event dropped, callback is not keeping up")
		return false
	}
}

// release lets the deliver goroutine finish once the queue is drained.
// Must not be called before the producer has stopped.
func (b *bridge) release() {
	close(b.queue)
}
