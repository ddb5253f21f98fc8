// Package windowtest provides an in-memory window.Conn for tests.
package windowtest

import (
	"errors"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/pidfocus/internal/window"
)

var errBadWindow = errors.New("BadWindow")

// Node is one window of the fake tree.
type Node struct {
	// PID is stored as _NET_WM_PID. Zero leaves the property unset.
	PID int
	// PropType and PropFormat override CARDINAL/32 when non-zero.
	PropType   xproto.Atom
	PropFormat byte
	// Empty keeps the property but with no items.
	Empty    bool
	Children []xproto.Window
}

// SentEvent records a SendEvent request.
type SentEvent struct {
	Propagate bool
	Dest      xproto.Window
	Mask      uint32
	Event     []byte
}

// Conn is a scripted, thread-safe window.Conn.
type Conn struct {
	mu sync.Mutex

	root  xproto.Window
	nodes map[xproto.Window]*Node
	atoms map[string]xproto.Atom

	// NoPIDAtom makes _NET_WM_PID unknown to the server.
	NoPIDAtom bool

	focus     []xproto.Window
	focusIdx  int
	focusHits int

	sent       []SentEvent
	treeCalls  map[xproto.Window]int
	propCalls  map[xproto.Window]int
	flushes    int
	dials      int
	closes     int
	closed     bool
	nextAtomID xproto.Atom
}

var _ window.Conn = (*Conn)(nil)

// New returns a fake connection whose root window is root.
func New(root xproto.Window) *Conn {
	c := &Conn{
		root:       root,
		nodes:      map[xproto.Window]*Node{root: {}},
		atoms:      map[string]xproto.Atom{},
		treeCalls:  map[xproto.Window]int{},
		propCalls:  map[xproto.Window]int{},
		nextAtomID: 300,
	}
	return c
}

// Add sets node as window win and appends win to parent's children.
func (c *Conn) Add(parent, win xproto.Window, node Node) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := node
	c.nodes[win] = &n
	if p, ok := c.nodes[parent]; ok && parent != win {
		p.Children = append(p.Children, win)
	}
	return c
}

// SetRootPID stores pid on the root window itself.
func (c *Conn) SetRootPID(pid int) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[c.root].PID = pid
	return c
}

// ScriptFocus queues the windows returned by successive InputFocus calls.
// Once the script runs out InputFocus reports no window.
func (c *Conn) ScriptFocus(wins ...xproto.Window) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = append(c.focus, wins...)
	return c
}

// Dialer returns a window.Dialer handing out this connection. Every dial
// reopens it.
func (c *Conn) Dialer() window.Dialer {
	return func() (window.Conn, error) {
		c.mu.Lock()
		c.dials++
		c.closed = false
		c.mu.Unlock()
		return c, nil
	}
}

// FailingDialer returns a window.Dialer that always fails with err.
func FailingDialer(err error) window.Dialer {
	return func() (window.Conn, error) {
		return nil, err
	}
}

func (c *Conn) Root() xproto.Window {
	return c.root
}

func (c *Conn) atomLocked(name string, onlyIfExists bool) xproto.Atom {
	if a, ok := c.atoms[name]; ok {
		return a
	}
	// _NET_WM_PID counts as predefined on the fake server unless NoPIDAtom.
	if onlyIfExists && (name != "_NET_WM_PID" || c.NoPIDAtom) {
		return xproto.AtomNone
	}
	c.atoms[name] = c.nextAtomID
	c.nextAtomID++
	return c.atoms[name]
}

func (c *Conn) InternAtom(name string, onlyIfExists bool) (xproto.Atom, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return xproto.AtomNone, window.ErrClosed
	}
	return c.atomLocked(name, onlyIfExists), nil
}

// Atom returns the atom interned for name, or AtomNone.
func (c *Conn) Atom(name string) xproto.Atom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atoms[name]
}

func (c *Conn) GetProperty(win xproto.Window, prop, typ xproto.Atom, offset, length uint32) (*xproto.GetPropertyReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, window.ErrClosed
	}
	c.propCalls[win]++

	node, ok := c.nodes[win]
	if !ok {
		return nil, errBadWindow
	}

	// Unset property: type None, format 0, no data.
	pidAtom, ok := c.atoms["_NET_WM_PID"]
	if !ok || prop != pidAtom || (node.PID == 0 && !node.Empty) {
		return &xproto.GetPropertyReply{}, nil
	}

	actualType := xproto.Atom(xproto.AtomCardinal)
	if node.PropType != 0 {
		actualType = node.PropType
	}
	format := byte(32)
	if node.PropFormat != 0 {
		format = node.PropFormat
	}

	reply := &xproto.GetPropertyReply{Type: actualType, Format: format}
	if node.Empty {
		return reply, nil
	}
	if typ != xproto.GetPropertyTypeAny && typ != actualType {
		reply.BytesAfter = 4
		return reply, nil
	}

	pid := uint32(node.PID)
	reply.ValueLen = 1
	reply.Value = []byte{byte(pid), byte(pid >> 8), byte(pid >> 16), byte(pid >> 24)}
	return reply, nil
}

func (c *Conn) QueryTree(win xproto.Window) (*xproto.QueryTreeReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, window.ErrClosed
	}
	c.treeCalls[win]++

	node, ok := c.nodes[win]
	if !ok {
		return nil, errBadWindow
	}
	children := append([]xproto.Window(nil), node.Children...)
	return &xproto.QueryTreeReply{
		Root:        c.root,
		ChildrenLen: uint16(len(children)),
		Children:    children,
	}, nil
}

func (c *Conn) InputFocus() (xproto.Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, window.ErrClosed
	}
	c.focusHits++
	if c.focusIdx >= len(c.focus) {
		return 0, nil
	}
	win := c.focus[c.focusIdx]
	c.focusIdx++
	return win, nil
}

func (c *Conn) SendEvent(propagate bool, dest xproto.Window, mask uint32, event []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return window.ErrClosed
	}
	c.sent = append(c.sent, SentEvent{
		Propagate: propagate,
		Dest:      dest,
		Mask:      mask,
		Event:     append([]byte(nil), event...),
	})
	return nil
}

func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return window.ErrClosed
	}
	c.flushes++
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.closed = true
}

// Sent returns a copy of the recorded SendEvent requests.
func (c *Conn) Sent() []SentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentEvent(nil), c.sent...)
}

// TreeCalls returns how many times QueryTree was issued for win.
func (c *Conn) TreeCalls(win xproto.Window) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treeCalls[win]
}

// PropertyCalls returns how many times GetProperty was issued for win.
func (c *Conn) PropertyCalls(win xproto.Window) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.propCalls[win]
}

// FocusDone reports whether every scripted focus has been handed out and
// at least one more poll happened after that.
func (c *Conn) FocusDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusHits > len(c.focus)
}

func (c *Conn) Flushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

func (c *Conn) Dials() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dials
}

func (c *Conn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
