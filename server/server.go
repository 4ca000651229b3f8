// Package server exposes the batch generator over HTTP: a ledger is uploaded
// and the bundle of statements is downloaded in return.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/soa"
	"github.com/etnz/soa/bundle"
	"github.com/etnz/soa/config"
	"github.com/etnz/soa/date"
	"github.com/etnz/soa/logger"
	"github.com/etnz/soa/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server answers statement requests with the settings of a Config.
type Server struct {
	cfg     *config.Config
	profile *soa.LayoutProfile
	log     zerolog.Logger
	router  chi.Router
}

// New returns a server using cfg for every setting a request does not override.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	p, err := soa.LoadProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, profile: p, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "X-Warnings"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/statements", s.handleStatements)
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("server shutting down")
		return srv.Shutdown(shutdown)
	}
}

// requestLogger tags every request with an id and logs its completion.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		log := s.log.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		w.Header().Set("X-Request-ID", requestID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Info().
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// request is a decoded statements request.
type request struct {
	ledger  *soa.Ledger
	mapping soa.ColumnMapping
	profile *soa.LayoutProfile
	format  string
	opts    soa.Options
}

// handleStatements generates the statements of the uploaded ledger and
// answers the ZIP bundle, or nothing if any statement failed.
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := s.decode(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err)
		return
	}

	rd, err := renderer.New(req.format, renderer.Options{Logger: log})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var buf bytes.Buffer
	pk := &bundle.Stream{W: &buf, Modified: req.opts.AsOf.Time()}
	b, err := soa.Generate(ctx, req.ledger, req.mapping, req.profile, req.opts, rd, pk)
	switch {
	case errors.Is(err, soa.ErrMapping), errors.Is(err, soa.ErrNameCollision):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		log.Error().Err(err).Msg("cannot generate statements")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Warnings(log, b.Warnings)
	log.Info().Int("statements", len(b.Entries)).Int("warnings", len(b.Warnings)).Msg("statements generated")

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", config.DefaultOutput))
	w.Header().Set("X-Warnings", fmt.Sprint(len(b.Warnings)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("cannot write response")
	}
}

// decode reads the multipart form of a statements request.
//
// Form fields: ledger (file), mapping (YAML), map (field=column, repeated),
// profile (built-in name), format, subsidiary, as_of, merchants (comma separated)
// and guess (bool, binds the required fields left unbound from the ledger header).
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*request, error) {
	limit := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, fmt.Errorf("cannot read form: %w", err)
	}

	explicit, err := soa.DecodeMapping(strings.NewReader(r.FormValue("mapping")))
	if err != nil {
		return nil, err
	}
	for _, b := range r.MultipartForm.Value["map"] {
		f, col, err := soa.ParseBinding(b)
		if err != nil {
			return nil, err
		}
		explicit = explicit.With(f, col)
	}

	file, header, err := r.FormFile("ledger")
	if err != nil {
		return nil, fmt.Errorf("ledger file: %w", err)
	}
	defer file.Close()
	l, err := soa.DecodeLedger(header.Filename, file, explicit)
	if err != nil {
		return nil, err
	}

	var guess bool
	if v := r.FormValue("guess"); v != "" {
		if guess, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid guess %q: %w", v, err)
		}
	}

	req := &request{
		ledger:  l,
		mapping: l.EffectiveMapping(explicit, guess),
		profile: s.profile,
		format:  s.cfg.Format,
		opts: soa.Options{
			AsOf:       s.cfg.AsOf,
			Subsidiary: s.cfg.Subsidiary,
			Workers:    s.cfg.Workers,
		},
	}
	// Profile files are only read from the server configuration.
	if name := r.FormValue("profile"); name != "" {
		if req.profile, err = soa.BuiltinProfile(name); err != nil {
			return nil, err
		}
	}
	if v := r.FormValue("format"); v != "" {
		req.format = v
	}
	if v := r.FormValue("subsidiary"); v != "" {
		req.opts.Subsidiary = v
	}
	if v := r.FormValue("as_of"); v != "" {
		if req.opts.AsOf, err = date.ParseAny(v, config.AsOfLayouts...); err != nil {
			return nil, fmt.Errorf("as_of: %w", err)
		}
	}
	for _, m := range strings.Split(r.FormValue("merchants"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			req.opts.Merchants = append(req.opts.Merchants, m)
		}
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": w.Header().Get("X-Request-ID"),
	})
}
