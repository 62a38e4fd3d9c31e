// Package server exposes liveness, readiness, Prometheus metrics and a
// synchronous passport preview over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/validation"
	"passport-workers/internal/scoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxPreviewBody = 1 << 20

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type Server struct {
	engine    *scoring.Engine
	augmenter scoring.NarrativeAugmenter
	checks    map[string]Check
	logger    logger.Logger
	http      *http.Server
}

func New(addr string, engine *scoring.Engine, augmenter scoring.NarrativeAugmenter, checks map[string]Check, log logger.Logger) *Server {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	s := &Server{
		engine:    engine,
		augmenter: augmenter,
		checks:    checks,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/passports", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/preview", s.preview)
	})
	return r
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not_ready"
		s.logger.Warn("readiness check failed", map[string]interface{}{"checks": results})
	}
	writeJSON(w, status, body)
}

// preview scores the posted inputs without storing anything. With
// ?augment=true the configured narrative provider is tried first.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var in scoring.Inputs
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	augment, _ := strconv.ParseBool(r.URL.Query().Get("augment"))

	var (
		result    scoring.Result
		augmented bool
	)
	if augment {
		var err error
		result, augmented, err = s.engine.GenerateAugmented(r.Context(), in, s.augmenter)
		if err != nil {
			s.logger.Warn("preview narrative fell back to rules", map[string]interface{}{"error": err.Error()})
		}
	} else {
		result = s.engine.Generate(in)
	}

	res, err := validation.ValidatePassport(result)
	if err != nil || !res.Valid {
		msg := "passport failed validation"
		if err != nil {
			msg += ": " + err.Error()
		} else {
			msg += ": " + strings.Join(res.Messages(), "; ")
		}
		s.logger.Error(msg, nil)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	w.Header().Set("X-Narrative-Augmented", strconv.FormatBool(augmented))
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
