package provider

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modelfile"
)

const maxRequestBytes = 64 << 20

// NewHandler serves p over the model service API: POST /{id} with a Request
// body answers the model as JSON. The model listing routes answer 404.
func NewHandler(p Provider, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	notFound := func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}
	mux.HandleFunc("GET /mmapi/modalmodel", notFound)
	mux.HandleFunc("GET /mmapi/modalmodel/{id}", notFound)

	compute := func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		var req Request
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := req.Material.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mesh := req.ToMesh(id)
		if err := mesh.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m, err := p.FetchModel(r.Context(), id, mesh, req.Material)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, modal.ErrNoModes), errors.Is(err, contact.ErrEmptyMesh), errors.Is(err, ErrTooLarge):
				status = http.StatusUnprocessableEntity
			case r.Context().Err() != nil:
				return
			}
			log.Warn("model request failed", zap.String("id", id), zap.Error(err))
			http.Error(w, err.Error(), status)
			return
		}
		if m.ID == "" {
			named := *m
			named.ID = id
			m = &named
		}
		w.Header().Set("Content-Type", "application/json")
		if err := modelfile.Encode(w, m); err != nil {
			log.Warn("encode model", zap.String("id", id), zap.Error(err))
		}
	}
	mux.HandleFunc("POST /{id}", compute)
	mux.HandleFunc("GET /{id}", compute)
	return mux
}
