package ws

import (
	"net/http"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler upgrades GET /link?from=<id> and hands the link to accept. The
// request stays open until the link is done.
func Handler(accept func(peer.Link), log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		if from == "" {
			http.Error(w, "missing from", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// participants dial each other directly, not from a browser page
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Warn("websocket accept", zap.String("from", from), zap.Error(err))
			return
		}

		l := newLink(conn, from)
		accept(l)
		<-l.Done()
	}
}
