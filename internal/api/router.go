// Package api exposes the running simulation over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/signalsfoundry/surface-survey/internal/logging"
	"github.com/signalsfoundry/surface-survey/internal/sim"
	"github.com/signalsfoundry/surface-survey/model"
)

// Simulation is the subset of *sim.Simulation the HTTP surface needs.
type Simulation interface {
	Now() time.Time
	Instruments() []sim.InstrumentStatus
	Instrument(id string) (sim.InstrumentStatus, error)
	Toggle(ctx context.Context, id string) (bool, error)
	Records(containerID string) ([]model.Record, error)
	Vessels() []sim.VesselStatus
	Notifications() []sim.Notification
}

// Options configures the router.
type Options struct {
	Logger      logging.Logger
	Metrics     http.Handler
	CORSOrigins []string
}

// ToggleResponse is returned by the toggle action.
type ToggleResponse struct {
	ID          string `json:"id"`
	Active      bool   `json:"active"`
	ToggleLabel string `json:"toggle_label"`
	Status      string `json:"status"`
}

type handler struct {
	sim Simulation
	log logging.Logger
}

// NewRouter builds the HTTP routes for s.
func NewRouter(s Simulation, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	h := &handler{sim: s, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Get("/clock", h.clock)
	r.Route("/instruments", func(r chi.Router) {
		r.Get("/", h.listInstruments)
		r.Get("/{id}", h.getInstrument)
		r.Post("/{id}/toggle", h.toggleInstrument)
	})
	r.Get("/containers/{id}/records", h.listRecords)
	r.Get("/vessels", h.listVessels)
	r.Get("/notifications", h.listNotifications)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, ErrNotFound)
	})
	return r
}

func (h *handler) clock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]time.Time{"sim_time": h.sim.Now()})
}

func (h *handler) listInstruments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Instruments())
}

func (h *handler) getInstrument(w http.ResponseWriter, r *http.Request) {
	st, err := h.sim.Instrument(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) toggleInstrument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	active, err := h.sim.Toggle(ctx, id)
	if err != nil {
		logging.LoggerFromContext(ctx).Warn(ctx, "toggle failed", logging.String("instrument", id), logging.Err(err))
		writeError(w, r, err)
		return
	}
	st, err := h.sim.Instrument(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{
		ID:          id,
		Active:      active,
		ToggleLabel: st.ToggleLabel,
		Status:      st.Status,
	})
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.sim.Records(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) listVessels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Vessels())
}

func (h *handler) listNotifications(w http.ResponseWriter, _ *http.Request) {
	notes := h.sim.Notifications()
	if notes == nil {
		notes = []sim.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}
