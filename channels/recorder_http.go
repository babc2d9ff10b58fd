package channels

import (
	"encoding/json"
	"go/types"
	"net/http"

	"github.com/go-chi/chi"

	"github.jpl.nasa.gov/bdube/transrec/server"
)

// RecorderHTTP exposes a Recorder's Root, Prefix, and Enabled fields over
// HTTP so an operator can redirect or pause archival without restarting
// the server, the same live-reconfiguration this recorder's 2-D ancestor
// offered its callers via route injection. Here the routes are bound
// directly into a chi.Router instead, matching how bus builds its own
// router rather than going through an injection interface.
type RecorderHTTP struct {
	*Recorder
}

// NewRecorderHTTP wraps rec for HTTP exposure.
func NewRecorderHTTP(rec *Recorder) RecorderHTTP {
	return RecorderHTTP{rec}
}

// BindRoutes mounts GET/POST handlers for root, prefix, and enabled under
// root on the given router.
func (h RecorderHTTP) BindRoutes(r chi.Router) {
	r.Get("/recorder/root", h.getRoot)
	r.Post("/recorder/root", h.setRoot)
	r.Get("/recorder/prefix", h.getPrefix)
	r.Post("/recorder/prefix", h.setPrefix)
	r.Get("/recorder/enabled", h.getEnabled)
	r.Post("/recorder/enabled", h.setEnabled)
}

func (h RecorderHTTP) getRoot(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	root := h.Root
	h.mu.Unlock()
	hp := server.HumanPayload{T: types.String, String: root}
	hp.EncodeAndRespond(w, r)
}

func (h RecorderHTTP) setRoot(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&str); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.Root = str.Str
	h.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (h RecorderHTTP) getPrefix(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	prefix := h.Prefix
	h.mu.Unlock()
	hp := server.HumanPayload{T: types.String, String: prefix}
	hp.EncodeAndRespond(w, r)
}

func (h RecorderHTTP) setPrefix(w http.ResponseWriter, r *http.Request) {
	str := server.StrT{}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&str); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.Prefix = str.Str
	h.counter = 0
	h.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (h RecorderHTTP) getEnabled(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	enabled := h.Enabled
	h.mu.Unlock()
	hp := server.HumanPayload{T: types.Bool, Bool: enabled}
	hp.EncodeAndRespond(w, r)
}

func (h RecorderHTTP) setEnabled(w http.ResponseWriter, r *http.Request) {
	b := server.BoolT{}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.Enabled = b.Bool
	h.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}
