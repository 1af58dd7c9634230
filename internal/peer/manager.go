package peer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrNotIdle = errors.New("outbound connection already open or in progress")
var ErrRoleGuest = errors.New("guests do not accept inbound links")
var ErrUnknownLink = errors.New("unknown link")
var ErrSelfDial = errors.New("cannot connect to self")

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
)

// Role is derived from Status: a participant is a guest exactly while its
// single outbound link is open.
type Role int

const (
	RoleHost Role = iota
	RoleGuest
)

func (r Role) String() string {
	if r == RoleGuest {
		return "guest"
	}
	return "host"
}

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Event is delivered by link goroutines to the owner of the Manager.
type Event interface{ isEvent() }

type Data struct {
	LinkID  string
	Payload []byte
}

type Closed struct {
	LinkID string
	Err    error
}

func (Data) isEvent()   {}
func (Closed) isEvent() {}

type LinkInfo struct {
	ID        string
	RemoteID  string
	Direction Direction
}

type Options struct {
	SendTimeout time.Duration
	OutboxSize  int
}

func (o Options) withDefaults() Options {
	if o.SendTimeout <= 0 {
		o.SendTimeout = 3 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	return o
}

type conn struct {
	info   LinkInfo
	link   Link
	out    chan []byte
	cancel context.CancelFunc
}

// Manager owns the active link set. It is not safe for concurrent use: every
// method must be called from the single goroutine that also drains the events
// channel.
type Manager struct {
	ctx      context.Context
	selfID   string
	status   Status
	links    map[string]*conn
	outbound string
	events   chan<- Event
	opts     Options
	log      *zap.Logger
	seq      int
}

func NewManager(ctx context.Context, selfID string, events chan<- Event, opts Options, log *zap.Logger) *Manager {
	return &Manager{
		ctx:    ctx,
		selfID: selfID,
		status: StatusIdle,
		links:  make(map[string]*conn),
		events: events,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

func (m *Manager) SelfID() string { return m.selfID }
func (m *Manager) Status() Status { return m.status }

func (m *Manager) Role() Role {
	if m.status == StatusConnected {
		return RoleGuest
	}
	return RoleHost
}

func (m *Manager) Has(id string) bool {
	_, ok := m.links[id]
	return ok
}

// Links lists the active links ordered by id.
func (m *Manager) Links() []LinkInfo {
	out := make([]LinkInfo, 0, len(m.links))
	for _, c := range m.links {
		out = append(out, c.info)
	}
	slices.SortFunc(out, func(a, b LinkInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// AddInbound registers a link someone else opened to us. Only hosts accept.
func (m *Manager) AddInbound(l Link) (string, error) {
	if m.Role() == RoleGuest {
		return "", ErrRoleGuest
	}
	return m.add(l, Inbound), nil
}

// BeginConnect moves idle -> connecting. The caller dials and reports back with
// ConnectSucceeded or ConnectFailed.
func (m *Manager) BeginConnect(remoteID string) error {
	if m.status != StatusIdle {
		return ErrNotIdle
	}
	if remoteID == m.selfID {
		return ErrSelfDial
	}
	m.status = StatusConnecting
	return nil
}

func (m *Manager) ConnectFailed() {
	if m.status == StatusConnecting {
		m.status = StatusIdle
	}
}

// ConnectSucceeded installs the outbound link and makes this participant a
// guest. Inbound links accepted while hosting are closed.
func (m *Manager) ConnectSucceeded(l Link) (string, error) {
	if m.status != StatusConnecting {
		_ = l.Close()
		return "", ErrNotIdle
	}
	for id, c := range m.links {
		if c.info.Direction == Inbound {
			m.Remove(id, fmt.Errorf("joining %s", l.RemoteID()))
		}
	}
	id := m.add(l, Outbound)
	m.outbound = id
	m.status = StatusConnected
	return id, nil
}

func (m *Manager) add(l Link, dir Direction) string {
	m.seq++
	id := fmt.Sprintf("%s/%d", l.RemoteID(), m.seq)
	ctx, cancel := context.WithCancel(m.ctx)
	c := &conn{
		info:   LinkInfo{ID: id, RemoteID: l.RemoteID(), Direction: dir},
		link:   l,
		out:    make(chan []byte, m.opts.OutboxSize),
		cancel: cancel,
	}
	m.links[id] = c
	go m.readLoop(ctx, c)
	go m.writeLoop(ctx, c)
	m.log.Info("link opened", zap.String("link", id), zap.String("direction", string(dir)))
	return id
}

// Remove drops a link. It reports whether it was the outbound link, in which
// case the participant is idle and a host again.
func (m *Manager) Remove(id string, reason error) bool {
	c, ok := m.links[id]
	if !ok {
		return false
	}
	delete(m.links, id)
	c.cancel()
	close(c.out)
	_ = c.link.Close()
	m.log.Info("link closed", zap.String("link", id), zap.Error(reason))

	if id != m.outbound {
		return false
	}
	m.outbound = ""
	m.status = StatusIdle
	return true
}

// Send queues data for one link.
func (m *Manager) Send(id string, data []byte) error {
	c, ok := m.links[id]
	if !ok {
		return ErrUnknownLink
	}
	if !m.enqueue(c, data) {
		m.Remove(id, errors.New("outbox full"))
	}
	return nil
}

// Broadcast queues data for every active link and returns immediately.
func (m *Manager) Broadcast(data []byte) {
	m.BroadcastExcept("", data)
}

func (m *Manager) BroadcastExcept(except string, data []byte) {
	var slow []string
	for id, c := range m.links {
		if id == except {
			continue
		}
		if !m.enqueue(c, data) {
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		m.Remove(id, errors.New("outbox full"))
	}
}

func (m *Manager) enqueue(c *conn, data []byte) bool {
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

// Close drops every link.
func (m *Manager) Close() error {
	var err error
	for id, c := range m.links {
		delete(m.links, id)
		c.cancel()
		close(c.out)
		err = multierr.Append(err, c.link.Close())
	}
	m.outbound = ""
	m.status = StatusIdle
	return err
}

func (m *Manager) readLoop(ctx context.Context, c *conn) {
	for {
		data, err := c.link.Receive(ctx)
		if err != nil {
			m.deliver(ctx, Closed{LinkID: c.info.ID, Err: err})
			return
		}
		if !m.deliver(ctx, Data{LinkID: c.info.ID, Payload: data}) {
			return
		}
	}
}

func (m *Manager) writeLoop(ctx context.Context, c *conn) {
	for data := range c.out {
		sendCtx, cancel := context.WithTimeout(ctx, m.opts.SendTimeout)
		err := c.link.Send(sendCtx, data)
		cancel()
		if err != nil {
			m.log.Warn("link send failed", zap.String("link", c.info.ID), zap.Error(err))
			// the reader sees the close and reports it
			_ = c.link.Close()
			return
		}
	}
}

func (m *Manager) deliver(ctx context.Context, ev Event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
