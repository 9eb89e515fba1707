// Package server exposes the tempo analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-tempo/config"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

var errBadRequest = errors.New("bad request")

// Decoder turns an uploaded audio file into PCM
type Decoder interface {
	DecodeBytes(ctx context.Context, data []byte) (*transcode.AudioData, error)
}

// Server handles tempo requests
type Server struct {
	config   config.ServerConfig
	defaults tempo.Params
	analyzer *tempo.Analyzer
	decoder  Decoder
	metrics  *Metrics
	logger   logging.Logger
	mux      *http.ServeMux
}

// New wires a server. defaults fill query parameters the caller omits.
func New(cfg config.ServerConfig, analyzer *tempo.Analyzer, decoder Decoder, defaults tempo.Params) *Server {
	s := &Server{
		config:   cfg,
		defaults: defaults,
		analyzer: analyzer,
		decoder:  decoder,
		metrics:  NewMetrics(),
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /v1/tempo", s.withRequestID(s.handleTempo))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.Fields{"addr": ln.Addr().String()})
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logging.ContextWithFields(r.Context(), logging.Fields{"request_id": id})
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTempo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)
	startTime := time.Now()

	res, err := s.analyze(ctx, w, r)

	s.metrics.AnalysisDuration.Observe(time.Since(startTime).Seconds())

	if err != nil {
		status, outcome := classify(err)
		s.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()

		fields := logging.Fields{"status": status, "outcome": outcome}
		if status >= http.StatusInternalServerError {
			logger.Error(err, "Tempo request failed", fields)
		} else {
			logger.Warn("Tempo request rejected: "+err.Error(), fields)
		}

		s.writeJSON(ctx, w, status, map[string]string{
			"error":   err.Error(),
			"outcome": outcome,
		})
		return
	}

	s.metrics.AnalysesTotal.WithLabelValues(outcomeOK).Inc()
	s.metrics.DetectedBPM.Observe(float64(res.BPM))

	logger.Info("Tempo request completed", logging.Fields{
		"bpm":         res.BPM,
		"confidence":  res.Confidence,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	s.writeJSON(ctx, w, http.StatusOK, res)
}

func (s *Server) analyze(ctx context.Context, w http.ResponseWriter, r *http.Request) (*tempo.Result, error) {
	params, start, end, err := parseQuery(r.URL.Query(), s.defaults)
	if err != nil {
		return nil, err
	}

	body := io.Reader(r.Body)
	if s.config.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty request body", errBadRequest)
	}

	audio, err := s.decoder.DecodeBytes(ctx, data)
	if err != nil {
		return nil, &decodeError{err: err}
	}

	channel, err := audio.Channel(0)
	if err != nil {
		return nil, &decodeError{err: err}
	}

	return s.analyzer.AnalyzeChannel(ctx, channel, audio.SampleRate, start, end, params)
}

// parseQuery reads min, max, sensitivity, start and end. A missing end
// analyses to the end of the audio.
func parseQuery(q url.Values, defaults tempo.Params) (tempo.Params, float64, float64, error) {
	params := defaults
	start, end := 0.0, -1.0

	ints := []struct {
		key string
		dst *int
	}{
		{"min", &params.MinBPM},
		{"max", &params.MaxBPM},
		{"sensitivity", &params.Sensitivity},
	}
	for _, p := range ints {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return params, 0, 0, fmt.Errorf("%w: %s=%q is not an integer", errBadRequest, p.key, v)
			}
			*p.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"start", &start},
		{"end", &end},
	}
	for _, p := range floats {
		if v := q.Get(p.key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return params, 0, 0, fmt.Errorf("%w: %s=%q is not a number", errBadRequest, p.key, v)
			}
			*p.dst = f
		}
	}

	return params, start, end, nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decode failed: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// classify maps an analysis error to an HTTP status and metric outcome
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var decodeErr *decodeError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, outcomeInvalid
	case errors.Is(err, errBadRequest),
		errors.Is(err, tempo.ErrInvalidRange),
		errors.Is(err, tempo.ErrInvalidSensitivity):
		return http.StatusBadRequest, outcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, outcomeError
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity, outcomeDecodeError
	case errors.Is(err, tempo.ErrInsufficientOnsets),
		errors.Is(err, tempo.ErrNoTempoInRange):
		return http.StatusUnprocessableEntity, outcomeNoTempo
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

// writeJSON sends v with the given status. The header is already out when
// encoding fails, so the error can only be logged.
func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithContext(ctx).Error(err, "Failed to encode response", logging.Fields{
			"status": status,
		})
	}
}
