// Package replica runs one participant: a single event loop that owns the
// local World and the link set, applies local edits and inbound messages in
// arrival order, and fans updates out to the other participants.
package replica

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/DoyleJ11/hexmap/internal/protocol"
	"github.com/DoyleJ11/hexmap/internal/session"
	"github.com/DoyleJ11/hexmap/internal/world"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("participant stopped")

type Msg interface{ isNodeMsg() }

// Local asks the loop to run a locally authored command.
type Local struct {
	Cmd   Command
	Reply chan Result
}

type Result struct {
	ID  string // id of a created token or scenario
	Err error
}

// Connect dials a host by its rendezvous id.
type Connect struct {
	RemoteID string
	Reply    chan error
}

// Accept hands over a link someone opened to us.
type Accept struct {
	Link peer.Link
}

// Load replaces the World with one read from a session document.
type Load struct {
	World world.World
	Reply chan error
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

type dialResult struct {
	remoteID string
	link     peer.Link
	err      error
	reply    chan error
}

type diceExpired struct{ seq int }

func (Local) isNodeMsg()       {}
func (Connect) isNodeMsg()     {}
func (Accept) isNodeMsg()      {}
func (Load) isNodeMsg()        {}
func (GetState) isNodeMsg()    {}
func (Shutdown) isNodeMsg()    {}
func (dialResult) isNodeMsg()  {}
func (diceExpired) isNodeMsg() {}

// View is a copy of the loop's state, safe to read from any goroutine.
type View struct {
	SelfID   string
	Username string
	Status   peer.Status
	Role     peer.Role
	Links    []peer.LinkInfo
	World    world.World
	Dice     *protocol.DiceRoll
}

type Config struct {
	Username    string
	DiceDisplay time.Duration
	Link        peer.Options
}

type Node struct {
	inbox  chan Msg
	events chan peer.Event
	world  world.World
	peers  *peer.Manager
	dialer peer.Dialer
	cfg    Config
	log    *zap.Logger

	dice    *protocol.DiceRoll
	diceSeq int
	roll    func(sides int) int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNode starts the participant loop with initial as its World.
func NewNode(parent context.Context, selfID string, cfg Config, initial world.World, dialer peer.Dialer, log *zap.Logger) *Node {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Username == "" {
		cfg.Username = selfID
	}
	if cfg.DiceDisplay <= 0 {
		cfg.DiceDisplay = 4 * time.Second
	}
	events := make(chan peer.Event, 64)
	n := &Node{
		inbox:  make(chan Msg, 64),
		events: events,
		world:  initial.Clone(),
		peers:  peer.NewManager(ctx, selfID, events, cfg.Link, log),
		dialer: dialer,
		cfg:    cfg,
		log:    log.With(zap.String("self", selfID)),
		roll:   func(sides int) int { return rand.IntN(sides) + 1 },
		ctx:    ctx,
		cancel: cancel,
	}
	n.world = world.SetUserLocation(n.world, n.selfLocation())

	go n.loop()
	return n
}

// Inbox exposes the loop's mailbox.
func (n *Node) Inbox() chan<- Msg { return n.inbox }

func (n *Node) loop() {
	for {
		select {
		case <-n.ctx.Done():
			n.shutdown()
			return

		case ev := <-n.events:
			switch e := ev.(type) {
			case peer.Data:
				n.receive(e.LinkID, e.Payload)
			case peer.Closed:
				if n.peers.Remove(e.LinkID, e.Err) {
					n.log.Info("lost host link, hosting again", zap.String("link", e.LinkID))
				}
			}

		case m := <-n.inbox:
			switch msg := m.(type) {
			case Local:
				msg.Reply <- n.local(msg.Cmd)

			case Connect:
				n.connect(msg)

			case dialResult:
				n.finishConnect(msg)

			case Accept:
				n.accept(msg.Link)

			case Load:
				msg.Reply <- n.load(msg.World)

			case GetState:
				msg.Reply <- n.view()

			case diceExpired:
				if msg.seq == n.diceSeq {
					n.dice = nil
				}

			case Shutdown:
				n.shutdown()
				return
			}
		}
	}
}

func (n *Node) shutdown() {
	if err := n.peers.Close(); err != nil {
		n.log.Warn("closing links", zap.Error(err))
	}
	n.cancel()
}

func (n *Node) view() View {
	v := View{
		SelfID:   n.peers.SelfID(),
		Username: n.cfg.Username,
		Status:   n.peers.Status(),
		Role:     n.peers.Role(),
		Links:    n.peers.Links(),
		World:    n.world.Clone(),
	}
	if n.dice != nil {
		d := *n.dice
		v.Dice = &d
	}
	return v
}

func (n *Node) connect(msg Connect) {
	if err := n.peers.BeginConnect(msg.RemoteID); err != nil {
		msg.Reply <- err
		return
	}
	go func() {
		link, err := n.dialer.Dial(n.ctx, msg.RemoteID)
		res := dialResult{remoteID: msg.RemoteID, link: link, err: err, reply: msg.Reply}
		select {
		case n.inbox <- res:
		case <-n.ctx.Done():
			if link != nil {
				_ = link.Close()
			}
		}
	}()
}

func (n *Node) finishConnect(res dialResult) {
	if res.err != nil {
		n.peers.ConnectFailed()
		n.log.Info("connect failed", zap.String("remote", res.remoteID), zap.Error(res.err))
		res.reply <- res.err
		return
	}
	id, err := n.peers.ConnectSucceeded(res.link)
	if err != nil {
		res.reply <- err
		return
	}
	n.log.Info("joined host", zap.String("remote", res.remoteID))
	n.sendTo(id, n.locationMessage())
	res.reply <- nil
}

// accept registers an inbound link and brings the new guest up to date.
func (n *Node) accept(l peer.Link) {
	id, err := n.peers.AddInbound(l)
	if err != nil {
		n.log.Info("refusing inbound link", zap.String("remote", l.RemoteID()), zap.Error(err))
		_ = l.Close()
		return
	}
	n.sendTo(id, protocol.SyncState{World: n.world})
	n.sendTo(id, n.locationMessage())
}

func (n *Node) load(w world.World) error {
	if !Permitted(n.peers.Role(), CmdLoadSession) {
		return ErrNotPermitted
	}
	if err := world.Validate(w); err != nil {
		return err
	}
	locations := n.world.UserLocations
	n.world = w.Clone()
	for _, loc := range locations {
		n.world = world.SetUserLocation(n.world, loc)
	}
	n.world = world.SetUserLocation(n.world, n.selfLocation())
	n.broadcast(protocol.SyncState{World: n.world})
	return nil
}

func (n *Node) selfLocation() world.UserLocation {
	return world.UserLocation{Username: n.cfg.Username, ScenarioID: n.world.CurrentScenarioID}
}

func (n *Node) locationMessage() protocol.UserLocation {
	loc := n.selfLocation()
	return protocol.UserLocation{Username: loc.Username, ScenarioID: loc.ScenarioID}
}

// trackLocation records and announces our own location if the current
// scenario moved under us.
func (n *Node) trackLocation() {
	loc := n.selfLocation()
	if n.world.UserLocations[loc.Username] == loc {
		return
	}
	n.world = world.SetUserLocation(n.world, loc)
	n.broadcast(n.locationMessage())
}

func (n *Node) showDice(d protocol.DiceRoll) {
	n.diceSeq++
	n.dice = &d
	seq := n.diceSeq
	time.AfterFunc(n.cfg.DiceDisplay, func() {
		select {
		case n.inbox <- diceExpired{seq: seq}:
		case <-n.ctx.Done():
		}
	})
}

func (n *Node) broadcast(m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		n.log.Error("encode", zap.String("type", string(m.Type())), zap.Error(err))
		return
	}
	n.peers.Broadcast(data)
}

func (n *Node) sendTo(linkID string, m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		n.log.Error("encode", zap.String("type", string(m.Type())), zap.Error(err))
		return
	}
	if err := n.peers.Send(linkID, data); err != nil {
		n.log.Warn("send", zap.String("link", linkID), zap.Error(err))
	}
}

// Helpers for callers outside the loop. Each blocks until the loop answers or
// ctx ends.

// Do runs cmd and returns the id of anything it created.
func (n *Node) Do(ctx context.Context, cmd Command) (string, error) {
	reply := make(chan Result, 1)
	if err := n.post(ctx, Local{Cmd: cmd, Reply: reply}); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.ID, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-n.ctx.Done():
		return "", ErrStopped
	}
}

func (n *Node) Connect(ctx context.Context, remoteID string) error {
	reply := make(chan error, 1)
	if err := n.post(ctx, Connect{RemoteID: remoteID, Reply: reply}); err != nil {
		return err
	}
	return n.await(ctx, reply)
}

func (n *Node) Load(ctx context.Context, w world.World) error {
	reply := make(chan error, 1)
	if err := n.post(ctx, Load{World: w, Reply: reply}); err != nil {
		return err
	}
	return n.await(ctx, reply)
}

func (n *Node) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := n.post(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-n.ctx.Done():
		return View{}, ErrStopped
	}
}

// Export snapshots the World as a session document stamped with now.
func (n *Node) Export(ctx context.Context, now time.Time) (session.Document, error) {
	v, err := n.State(ctx)
	if err != nil {
		return session.Document{}, err
	}
	return session.Export(v.World, now), nil
}

// AcceptLink hands l to the loop; it is closed if the participant has stopped.
func (n *Node) AcceptLink(l peer.Link) {
	select {
	case n.inbox <- Accept{Link: l}:
	case <-n.ctx.Done():
		_ = l.Close()
	}
}

// Stop shuts the loop down and closes every link.
func (n *Node) Stop() {
	select {
	case n.inbox <- Shutdown{}:
	case <-n.ctx.Done():
	}
}

// Done is closed once the loop has stopped.
func (n *Node) Done() <-chan struct{} { return n.ctx.Done() }

func (n *Node) post(ctx context.Context, m Msg) error {
	select {
	case n.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.ctx.Done():
		return ErrStopped
	}
}

func (n *Node) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-n.ctx.Done():
		return ErrStopped
	}
}
