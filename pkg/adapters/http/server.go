package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/synthex"
	"github.com/aretw0/synthex/internal/logging"
	"github.com/aretw0/synthex/internal/pages"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/session"
)

// Engine defines the part of the synthex engine the server needs.
type Engine interface {
	Submit(ctx context.Context, text string, cred domain.Credential) domain.Outcome
}

//go:embed templates/*.html
var templateFS embed.FS

var layout = template.Must(template.ParseFS(templateFS, "templates/layout.html"))

// Server serves the web UI and the JSON API.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager

	logger        *slog.Logger
	metrics       http.Handler
	secureCookies bool
	validator     *requestValidator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithSecureCookies marks the session cookie as HTTPS only.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	for _, p := range pages.Static {
		if _, err := pages.HTML(p); err != nil {
			return nil, err
		}
	}

	server := &Server{
		Engine:    engine,
		Sessions:  sessions,
		logger:    logging.NewNop(),
		validator: validator,
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(server.logRequests)

	// Web UI
	r.Get("/", server.GetExtractor)
	r.Get("/extractor", server.GetExtractor)
	r.Post("/extract", server.PostExtract)
	r.Get("/about", server.staticPage(domain.PageAbout))
	r.Get("/contact", server.staticPage(domain.PageContact))
	r.Get("/docs", server.staticPage(domain.PageDocs))
	r.Get("/settings", server.GetSettings)
	r.Post("/settings", server.PostSettings)

	// JSON API
	r.Group(func(r chi.Router) {
		r.Use(validator.Middleware)
		r.Post("/api/v1/extract", server.Extract)
		r.Get("/api/v1/session", server.GetSession)
		r.Get("/api/v1/events", server.SubscribeEvents)
	})
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "error", err)
			return
		}
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Synthex API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "synthex-http",
		"version":     strings.TrimSpace(synthex.Version),
		"api_version": apiVersion,
	})
}

// submit runs one extraction under the session lock and publishes the
// status changes to subscribers of the session.
func (s *Server) submit(ctx context.Context, sessionID, text string) (domain.Outcome, error) {
	_, outcome, err := s.Sessions.Track(ctx, sessionID, func(ctx context.Context, sess *domain.Session) domain.Outcome {
		s.Streams.Publish(sessionID, sessionEvent{Type: "status", Status: domain.StatusCalling})
		return s.Engine.Submit(synthex.ContextWithSessionID(ctx, sessionID), text, sess.Credential)
	})
	switch {
	case errors.Is(err, session.ErrOutcomeNotRecorded):
		s.logger.Warn("Outcome not saved to session", "session_id", sessionID, "error", err)
	case err != nil:
		return domain.Outcome{}, err
	}
	s.Streams.Publish(sessionID, sessionEvent{Type: "outcome", Status: domain.StatusIdle, Outcome: &outcome})
	return outcome, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound)
}
