package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/hexmap/internal/peer"
	"github.com/DoyleJ11/hexmap/internal/rendezvous"
	"github.com/DoyleJ11/hexmap/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RendezvousRoutes serves the id registry.
func RendezvousRoutes(reg *rendezvous.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/peers", RegisterPeer(reg, log))
	r.Get("/peers/{id}", LookupPeer(reg))
	r.Delete("/peers/{id}", RemovePeer(reg, log))
	r.Get("/healthz", Healthz)
	return r
}

// LinkRoutes serves a participant's link listener.
func LinkRoutes(accept func(peer.Link), log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/link", ws.Handler(accept, log))
	r.Get("/healthz", Healthz)
	return r
}
