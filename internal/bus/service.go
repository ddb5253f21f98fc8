// Package bus publishes focus control on the D-Bus session bus.
package bus

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/pidfocus/internal/focus"
	"github.com/bryanchriswhite/pidfocus/internal/logger"
	"github.com/bryanchriswhite/pidfocus/internal/window"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog"
)

const (
	BusName    = "io.github.bryanchriswhite.PidFocus"
	Interface  = BusName
	ObjectPath = dbus.ObjectPath("/io/github/bryanchriswhite/PidFocus")

	signalPIDChanged = Interface + ".PidChanged"

	ErrNameInvalidPID         = Interface + ".Error.InvalidPID"
	ErrNameDisplayUnavailable = Interface + ".Error.DisplayUnavailable"
	ErrNameFailed             = Interface + ".Error.Failed"
)

// Focus is the part of focus.Manager exposed on the bus
type Focus interface {
	SetFocus(pid int) error
	CurrentPID() int
	IsWatching() bool
	Subscribe(kinds ...focus.EventKind) (chan focus.Event, error)
	Unsubscribe(ch chan focus.Event)
}

type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// object is exported at ObjectPath; its methods are the D-Bus methods.
type object struct {
	focus Focus
	log   *zerolog.Logger
}

// FocusPID raises the window owned by pid.
func (o *object) FocusPID(pid int32) *dbus.Error {
	o.log.Debug().Int32("pid", pid).Msg("FocusPID called")
	if err := o.focus.SetFocus(int(pid)); err != nil {
		return toDBusError(err)
	}
	return nil
}

// CurrentPID returns the last focused PID, or 0.
func (o *object) CurrentPID() (int32, *dbus.Error) {
	return int32(o.focus.CurrentPID()), nil
}

// IsWatching reports whether focus is being watched.
func (o *object) IsWatching() (bool, *dbus.Error) {
	return o.focus.IsWatching(), nil
}

func toDBusError(err error) *dbus.Error {
	name := ErrNameFailed
	switch {
	case errors.Is(err, window.ErrInvalidPID):
		name = ErrNameInvalidPID
	case errors.Is(err, window.ErrDisplayUnavailable):
		name = ErrNameDisplayUnavailable
	}
	return dbus.NewError(name, []interface{}{err.Error()})
}

// Service owns the bus name and forwards focus changes as PidChanged signals.
type Service struct {
	conn   *dbus.Conn
	emit   emitter
	focus  Focus
	log    *zerolog.Logger
	events chan focus.Event
	done   chan struct{}
}

func introspection(obj *object) *introspect.Node {
	return &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(obj),
				Signals: []introspect.Signal{
					{
						Name: "PidChanged",
						Args: []introspect.Arg{{Name: "pid", Type: "i"}},
					},
				},
			},
		},
	}
}

// Start connects to the session bus, claims BusName and begins emitting
// PidChanged. Subscribing starts the focus watcher.
func Start(f Focus) (*Service, error) {
	log := logger.WithComponent("bus")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", BusName)
	}

	obj := &object{focus: f, log: log}
	if err := conn.Export(obj, ObjectPath, Interface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export object: %w", err)
	}
	if err := conn.Export(introspect.NewIntrospectable(introspection(obj)), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	s, err := newService(conn, f, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn

	log.Info().
		Str("name", BusName).
		Str("path", string(ObjectPath)).
		Msg("D-Bus service started")
	return s, nil
}

func newService(emit emitter, f Focus, log *zerolog.Logger) (*Service, error) {
	events, err := f.Subscribe(focus.EventPIDChanged)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to focus events: %w", err)
	}
	s := &Service{
		emit:   emit,
		focus:  f,
		log:    log,
		events: events,
		done:   make(chan struct{}),
	}
	go s.forward()
	return s, nil
}

func (s *Service) forward() {
	defer close(s.done)
	for ev := range s.events {
		if err := s.emit.Emit(ObjectPath, signalPIDChanged, int32(ev.PID)); err != nil {
			s.log.Warn().Err(err).Int("pid", ev.PID).Msg("Failed to emit PidChanged")
		}
	}
}

// Close unsubscribes, releases the bus name and closes the connection.
func (s *Service) Close() error {
	s.focus.Unsubscribe(s.events)
	<-s.done

	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.ReleaseName(BusName); err != nil {
		s.log.Debug().Err(err).Msg("Failed to release bus name")
	}
	return s.conn.Close()
}
