package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DoyleJ11/hexmap/internal/rendezvous"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type registerRequest struct {
	Addr string `json:"addr"`
}

func RegisterPeer(reg *rendezvous.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Addr = strings.TrimSpace(req.Addr)
		if req.Addr == "" {
			http.Error(w, "missing addr", http.StatusBadRequest)
			return
		}

		e, err := reg.Register(r.Context(), req.Addr)
		if err != nil {
			log.Error("register participant", zap.Error(err))
			http.Error(w, "failed to register", http.StatusInternalServerError)
			return
		}
		log.Info("participant registered", zap.String("id", e.ID), zap.String("addr", e.Addr))
		writeJSON(w, http.StatusCreated, e)
	}
}

func LookupPeer(reg *rendezvous.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := reg.Lookup(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, rendezvous.ErrNotFound):
			http.Error(w, "participant not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			writeJSON(w, http.StatusOK, e)
		}
	}
}

func RemovePeer(reg *rendezvous.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := reg.Remove(r.Context(), id)
		switch {
		case errors.Is(err, rendezvous.ErrNotFound):
			http.Error(w, "participant not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			log.Info("participant removed", zap.String("id", id))
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
