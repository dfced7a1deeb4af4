package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AdminServer exposes the minimal, unauthenticated admin HTTP surface
// (spec §6): health/status, lifecycle control, and dynamic config reload.
type AdminServer struct {
	app    *App
	worker *Worker
	router chi.Router
	srv    *http.Server
}

func NewAdminServer(app *App, worker *Worker) *AdminServer {
	a := &AdminServer{app: app, worker: worker}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", a.handleHealth)
	r.Get("/status", a.handleStatus)
	r.Post("/start", a.handleStart)
	r.Post("/stop", a.handleStop)
	r.Post("/restart", a.handleRestart)
	r.Post("/config/reload", a.handleConfigReload)
	r.Get("/config", a.handleConfigGet)
	r.Post("/config", a.handleConfigPost)
	a.router = r

	return a
}

func (a *AdminServer) Start() error {
	addr := fmt.Sprintf("%s:%d", a.app.Config.Server.Host, a.app.Config.Server.Port)
	a.srv = &http.Server{Addr: addr, Handler: a.router}
	a.app.Logger.Info().Str("addr", addr).Msg("admin HTTP surface listening")
	return a.srv.ListenAndServe()
}

func (a *AdminServer) Shutdown(ctx context.Context) error {
	if a.srv == nil {
		return nil
	}
	return a.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := a.worker.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":       status.Running,
		"items_handled": status.ItemsHandled,
		"last_poll_at":  status.LastPollAt.Format(time.RFC3339),
	})
}

func (a *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := a.app.Queue.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	status := a.worker.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":       status.Running,
		"uptime":        status.Uptime.String(),
		"items_handled": status.ItemsHandled,
		"queue_stats":   stats,
	})
}

func (a *AdminServer) handleStart(w http.ResponseWriter, r *http.Request) {
	a.worker.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (a *AdminServer) handleStop(w http.ResponseWriter, r *http.Request) {
	a.worker.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (a *AdminServer) handleRestart(w http.ResponseWriter, r *http.Request) {
	a.worker.Restart()
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

// configReloadRequest mirrors spec §6's "reload dynamic settings (poll
// interval, provider selection, minimum match score)".
type configReloadRequest struct {
	PollInterval  string   `json:"poll_interval,omitempty"`
	Providers     []string `json:"providers,omitempty"`
	MinMatchScore *float64 `json:"min_match_score,omitempty"`
}

func (a *AdminServer) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	var req configReloadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	if req.PollInterval != "" {
		if err := ReloadPollInterval(a.app.Config, req.PollInterval); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	if len(req.Providers) > 0 {
		a.app.ReloadProviders(req.Providers)
	}
	if req.MinMatchScore != nil {
		a.app.Config.Filters.MinMatchScore = *req.MinMatchScore
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (a *AdminServer) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"poll_interval": a.app.Config.Queue.PollInterval,
	})
}

func (a *AdminServer) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PollInterval string `json:"poll_interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := ReloadPollInterval(a.app.Config, req.PollInterval); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"poll_interval": a.app.Config.Queue.PollInterval})
}
