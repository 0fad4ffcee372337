package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/domain"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type catalogListing struct {
	ID      string              `json:"id"`
	Puzzles []domain.PuzzleView `json:"puzzles"`
}

// NewRouter wires health, catalog listing and the session websocket.
func NewRouter(ws *WSHandler, catalogs app.CatalogRepository) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	// Timeout only on plain requests; it would cut websocket sessions short.
	r.With(chimw.Timeout(10*time.Second)).Get("/catalogs/{id}", func(w http.ResponseWriter, r *http.Request) {
		cat, err := catalogs.GetCatalog(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, domain.ErrCatalogNotFound) {
			writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorPayload{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, catalogListing{ID: cat.ID(), Puzzles: cat.Views()})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
