package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jonwraymond/artifactcache/auth"
	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/observe"
)

// api serves cached entries over HTTP:
//
//	GET    /v1/documents/{id}/metadata
//	DELETE /v1/documents/{id}/metadata
//	GET    /v1/documents/{id}/suggestions
//	DELETE /v1/documents/{id}/suggestions
//	GET    /v1/epoch
//
// Deletes require the configured invalidate role when auth is enabled.
type api struct {
	rt *runtime
}

func (h *api) register(mux *http.ServeMux) {
	var role string
	if h.rt.cfg.Server.Auth.Enabled {
		role = h.rt.cfg.Server.Auth.InvalidateRole
	}
	mux.HandleFunc("GET /v1/documents/{id}/metadata", h.read(metadataOps))
	mux.Handle("DELETE /v1/documents/{id}/metadata", auth.RequireRole(role, h.invalidate(metadataOps)))
	mux.HandleFunc("GET /v1/documents/{id}/suggestions", h.read(suggestionOps))
	mux.Handle("DELETE /v1/documents/{id}/suggestions", auth.RequireRole(role, h.invalidate(suggestionOps)))
	mux.HandleFunc("GET /v1/epoch", h.epoch)
}

func (h *api) read(ops entryOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		entry, found, err := ops.read(r.Context(), h.rt, id)
		if err != nil {
			h.storeError(w, r, err)
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no valid " + ops.kind + " cached"})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func (h *api) invalidate(ops entryOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := ops.invalidate(r.Context(), h.rt, id); err != nil {
			h.storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *api) epoch(w http.ResponseWriter, r *http.Request) {
	state, err := h.rt.epoch.Current(r.Context(), h.rt.store)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, epochView{
		Published:       state.Published(),
		Version:         state.Version,
		ExpectedVersion: h.rt.epoch.FormatVersion,
		Hash:            state.Hash,
		Modified:        state.Modified,
	})
}

func (h *api) storeError(w http.ResponseWriter, r *http.Request, err error) {
	h.rt.logger.Warn(r.Context(), "request failed",
		observe.Field{Key: "path", Value: r.URL.Path},
		observe.Field{Key: "error", Value: err},
	)
	status := http.StatusInternalServerError
	if errors.Is(err, cache.ErrStoreUnavailable) || errors.Is(err, cache.ErrStoreTimeout) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

