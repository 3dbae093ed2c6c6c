package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// Requeuer moves an ERROR entry back to SCHEDULED.
type Requeuer interface {
	Requeue(ctx context.Context, id int64) error
}

// HttpRouteHandler serves the ops API used in serve mode.
type HttpRouteHandler struct {
	schedules store.ScheduleStore
	requeuer  Requeuer
	logger    *slog.Logger
	Addr      string
}

func NewRouteHandler(schedules store.ScheduleStore, requeuer Requeuer, addr string, logger *slog.Logger) *HttpRouteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HttpRouteHandler{
		schedules: schedules,
		requeuer:  requeuer,
		logger:    logger.With("component", "ops_api"),
		Addr:      addr,
	}
}

// Router returns the ops API routes.
func (handler *HttpRouteHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.handleHealth)
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/stats", handler.handleStats)
		r.Get("/{id}", handler.handleGetEntry)
		r.Post("/{id}/requeue", handler.handleRequeue)
	})
	return r
}

// Serve listens on Addr until ctx is cancelled, then shuts down gracefully.
func (handler *HttpRouteHandler) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              handler.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		printBanner(handler.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (handler *HttpRouteHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := handler.schedules.Ping(r.Context()); err != nil {
		handler.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "datastore unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (handler *HttpRouteHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := handler.schedules.CountGroupedByStatus(r.Context())
	if err != nil {
		handler.logger.Error("failed to count schedules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count schedules")
		return
	}

	out := make(map[string]int, len(state.AllStatuses))
	for _, st := range state.AllStatuses {
		out[st.String()] = counts[st]
	}
	writeJSON(w, http.StatusOK, out)
}

func (handler *HttpRouteHandler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := handler.schedules.FindByID(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound) || (err == nil && entry == nil):
		writeError(w, http.StatusNotFound, "schedule entry not found")
	case err != nil:
		handler.logger.Error("failed to load schedule entry", "entry_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule entry")
	default:
		writeJSON(w, http.StatusOK, newEntryResponse(entry))
	}
}

func (handler *HttpRouteHandler) handleRequeue(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = handler.requeuer.Requeue(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": state.StatusScheduled})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "schedule entry not found")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		handler.logger.Error("requeue failed", "entry_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "requeue failed")
	}
}
