// Package peertest connects participants in-process for tests.
package peertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoyleJ11/hexmap/internal/peer"
)

// Switchboard plays the rendezvous service: participants listen under an id
// and dial each other by id over in-memory pipes.
type Switchboard struct {
	mu        sync.Mutex
	listeners map[string]func(peer.Link)
}

func NewSwitchboard() *Switchboard {
	return &Switchboard{listeners: make(map[string]func(peer.Link))}
}

// Listen registers accept to receive links dialed to id.
func (s *Switchboard) Listen(id string, accept func(peer.Link)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[id] = accept
}

// Dialer returns a peer.Dialer that dials as selfID.
func (s *Switchboard) Dialer(selfID string) peer.Dialer {
	return dialer{board: s, self: selfID}
}

type dialer struct {
	board *Switchboard
	self  string
}

func (d dialer) Dial(ctx context.Context, remoteID string) (peer.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.board.mu.Lock()
	accept, ok := d.board.listeners[remoteID]
	d.board.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: no such participant", remoteID)
	}
	local, remote := peer.Pipe(d.self, remoteID)
	accept(remote)
	return local, nil
}
