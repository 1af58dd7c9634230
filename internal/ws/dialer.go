package ws

import (
	"context"
	"fmt"
	"net/url"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/coder/websocket"
)

// Resolver turns a participant id into the address its link listener is on.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Dialer opens links to other participants as SelfID.
type Dialer struct {
	Resolver Resolver
	SelfID   string
}

func (d Dialer) Dial(ctx context.Context, remoteID string) (peer.Link, error) {
	addr, err := d.Resolver.Resolve(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", remoteID, err)
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     addr,
		Path:     "/link",
		RawQuery: url.Values{"from": {d.SelfID}}.Encode(),
	}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", remoteID, err)
	}
	return newLink(conn, remoteID), nil
}
