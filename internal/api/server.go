// Package api exposes the read-side HTTP surface: score queries, a
// websocket stream of intraday updates, health, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

// Server serves the HTTP API.
type Server struct {
	addr     string
	daily    persistence.DailyScoresRepo
	intraday persistence.IntradayScoresRepo
	hub      *Hub
	log      zerolog.Logger
	http     *http.Server
}

// New builds a server on addr.
func New(addr string, daily persistence.DailyScoresRepo, intraday persistence.IntradayScoresRepo, hub *Hub, log zerolog.Logger) *Server {
	s := &Server{
		addr:     addr,
		daily:    daily,
		intraday: intraday,
		hub:      hub,
		log:      log.With().Str("component", "api").Logger(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/scores/daily", s.handleDaily).Methods(http.MethodGet)
	v1.HandleFunc("/scores/intraday/latest", s.handleIntradayLatest).Methods(http.MethodGet)
	v1.HandleFunc("/scores/intraday/history", s.handleIntradayHistory).Methods(http.MethodGet)

	r.HandleFunc("/ws/scores", s.hub.handleWS)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("api listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tradeDateParam parses the date query parameter, defaulting to today.
func tradeDateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return domain.DateOf(time.Now()), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	date, err := tradeDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	scores, err := s.daily.ByDate(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Msg("daily scores query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleIntradayLatest(w http.ResponseWriter, r *http.Request) {
	date, err := tradeDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	scores, err := s.intraday.Latest(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Msg("intraday latest query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleIntradayHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	date, err := tradeDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	scores, err := s.intraday.History(r.Context(), date, symbol)
	if err != nil {
		s.log.Error().Err(err).Msg("intraday history query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
