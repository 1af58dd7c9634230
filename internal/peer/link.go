// Package peer tracks this participant's identity and its live links to other
// participants, and derives whether it is acting as host or guest.
package peer

import (
	"context"
	"errors"
	"sync"
)

var ErrLinkClosed = errors.New("link closed")

// Link is one bidirectional, ordered, message-oriented connection to another
// participant.
type Link interface {
	RemoteID() string
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens an outbound link to the participant registered as remoteID.
type Dialer interface {
	Dial(ctx context.Context, remoteID string) (Link, error)
}

// Pipe returns two connected in-memory links. a is held by aID and talks to
// bID; b is the other end.
func Pipe(aID, bID string) (a, b Link) {
	const buffer = 64
	p := &pipeState{closed: make(chan struct{})}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	a = &pipeEnd{state: p, remote: bID, in: ba, out: ab}
	b = &pipeEnd{state: p, remote: aID, in: ab, out: ba}
	return a, b
}

type pipeState struct {
	once   sync.Once
	closed chan struct{}
}

type pipeEnd struct {
	state  *pipeState
	remote string
	in     <-chan []byte
	out    chan<- []byte
}

func (p *pipeEnd) RemoteID() string { return p.remote }

func (p *pipeEnd) Send(ctx context.Context, data []byte) error {
	select {
	case <-p.state.closed:
		return ErrLinkClosed
	default:
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case p.out <- buf:
		return nil
	case <-p.state.closed:
		return ErrLinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	// drain what was sent before a close
	select {
	case data := <-p.in:
		return data, nil
	default:
	}
	select {
	case data := <-p.in:
		return data, nil
	case <-p.state.closed:
		return nil, ErrLinkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.state.once.Do(func() { close(p.state.closed) })
	return nil
}
