// Package server exposes the extraction pipeline over HTTP: submit a
// record, poll its run, fetch the result. Processing is asynchronous; the
// submit endpoint returns a run id immediately.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/internal/pipeline"
	"github.com/FabioYanezRomero/kg-constructor/internal/store"
)

// Processor runs extraction for one record. Satisfied by pipeline.Pipeline.
type Processor interface {
	ProcessRecord(ctx context.Context, record model.Record, opts pipeline.Options) (*model.ExtractionResult, error)
}

// Server handles extraction requests over HTTP.
type Server struct {
	store    store.Store
	proc     Processor
	defaults pipeline.Options
}

// New creates a server over a run store and a processor.
func New(st store.Store, proc Processor, defaults pipeline.Options) *Server {
	return &Server{store: st, proc: proc, defaults: defaults}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/result", s.handleGetResult)
	})
	return r
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractRequest struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Domain          string   `json:"domain,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	MaxDisconnected *int     `json:"max_disconnected,omitempty"`
	MaxIterations   *int     `json:"max_iterations,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	opts := s.defaults
	if req.Domain != "" {
		opts.Domain = req.Domain
	}
	if req.Mode != "" {
		opts.Mode = model.ExtractionMode(req.Mode)
		if !opts.Mode.Valid() {
			writeError(w, http.StatusBadRequest, "unknown extraction mode "+req.Mode)
			return
		}
	}
	if req.MaxDisconnected != nil {
		opts.MaxDisconnected = *req.MaxDisconnected
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}

	run, err := s.store.CreateRun(r.Context(), req.ID, opts.Domain)
	if err != nil {
		zap.L().Error("server: create run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	record := model.Record{ID: req.ID, Text: req.Text}

	// Processing continues after the request returns; use a background
	// context so client disconnects don't cancel the extraction.
	go s.process(context.Background(), run.ID, record, opts)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(store.RunStatusQueued),
	})
}

func (s *Server) process(ctx context.Context, runID string, record model.Record, opts pipeline.Options) {
	_ = s.store.UpdateRunStatus(ctx, runID, store.RunStatusExtracting, "")

	result, err := s.proc.ProcessRecord(ctx, record, opts)
	if err != nil {
		zap.L().Error("server: extraction failed",
			zap.String("run_id", runID),
			zap.String("record", record.ID),
			zap.Error(err),
		)
		_ = s.store.UpdateRunStatus(ctx, runID, store.RunStatusFailed, err.Error())
		return
	}

	if err := s.store.SaveResult(ctx, runID, result); err != nil {
		zap.L().Error("server: save result failed", zap.String("run_id", runID), zap.Error(err))
		_ = s.store.UpdateRunStatus(ctx, runID, store.RunStatusFailed, err.Error())
		return
	}
	_ = s.store.UpdateRunStatus(ctx, runID, store.RunStatusComplete, "")
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{Limit: 100}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = store.RunStatus(status)
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.GetResult(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
