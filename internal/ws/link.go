// Package ws carries participant links over websockets.
package ws

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/coder/websocket"
)

// maxMessage bounds one frame. Full-state messages carry embedded background
// images, so the library default is far too small.
const maxMessage = 32 << 20

// Link is a peer.Link over one websocket connection.
type Link struct {
	conn   *websocket.Conn
	remote string
	done   chan struct{}
	once   sync.Once
}

func newLink(conn *websocket.Conn, remote string) *Link {
	conn.SetReadLimit(maxMessage)
	return &Link{conn: conn, remote: remote, done: make(chan struct{})}
}

func (l *Link) RemoteID() string { return l.remote }

func (l *Link) Send(ctx context.Context, data []byte) error {
	if err := l.conn.Write(ctx, websocket.MessageText, data); err != nil {
		l.finish()
		return closedErr(err)
	}
	return nil
}

func (l *Link) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := l.conn.Read(ctx)
	if err != nil {
		l.finish()
		return nil, closedErr(err)
	}
	return data, nil
}

func (l *Link) Close() error {
	defer l.finish()
	err := l.conn.Close(websocket.StatusNormalClosure, "bye")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Done is closed once the link has failed or been closed.
func (l *Link) Done() <-chan struct{} { return l.done }

func (l *Link) finish() {
	l.once.Do(func() { close(l.done) })
}

// closedErr reports a clean close from the other side as peer.ErrLinkClosed.
func closedErr(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return peer.ErrLinkClosed
	}
	return err
}
