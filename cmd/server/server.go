package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/auth"
	"github.com/Simplici0/printdesk/internal/backup"
	"github.com/Simplici0/printdesk/internal/loader"
	"github.com/Simplici0/printdesk/internal/logging"
	"github.com/Simplici0/printdesk/internal/metrics"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

const maxBodyBytes = 10 << 20

type server struct {
	store    *store.Store
	repo     *repository.Repository
	sessions *auth.Sessions
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func newServer(st *store.Store, repo *repository.Repository, sessions *auth.Sessions, m *metrics.Metrics, logger *zap.Logger) *server {
	return &server{
		store:    st,
		repo:     repo,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(s.logger))
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Get("/state", s.handleState)
			r.Patch("/state/preferences", s.handlePreferences)
			r.Post("/state/sync", s.handleSync)

			r.Get("/settings", s.handleSettingsGet)
			r.Put("/settings", s.handleSettingsPut)

			r.Get("/clients", s.handleClientsList)
			r.Post("/clients", s.handleClientsCreate)
			r.Put("/clients/{id}", s.handleClientsUpdate)
			r.Delete("/clients/{id}", s.handleClientsRemove)

			r.Get("/materials", s.handleMaterialsList)
			r.Post("/materials", s.handleMaterialsCreate)
			r.Put("/materials/{id}", s.handleMaterialsUpdate)
			r.Delete("/materials/{id}", s.handleMaterialsRemove)

			r.Get("/inks", s.handleInksList)
			r.Post("/inks", s.handleInksCreate)
			r.Put("/inks/{id}", s.handleInksUpdate)
			r.Delete("/inks/{id}", s.handleInksRemove)

			r.Get("/services", s.handleServicesList)
			r.Post("/services", s.handleServicesCreate)
			r.Get("/services/{id}", s.handleServicesGet)
			r.Put("/services/{id}", s.handleServicesUpdate)
			r.Delete("/services/{id}", s.handleServicesRemove)
			r.Get("/services/{id}/text", s.handleServicesText)
			r.Post("/services/{id}/payments", s.handleServicesPayment)
			r.Post("/services/{id}/comments", s.handleServicesComment)
			r.Post("/quote", s.handleQuote)

			r.Get("/backup", s.handleBackupExport)
			r.Post("/backup", s.handleBackupImport)
			r.Post("/seed", s.handleSeed)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Post("/migrate-cache", s.handleMigrateCache)
		})
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

var errInvalidBody = errors.New("JSON inválido")

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// writeError maps err to a status code and a JSON body.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, loader.ErrStale) {
		s.logger.Debug("request cancelled before load finished", zap.String("path", r.URL.Path))
		return
	}

	var fields fieldErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "dados inválidos", Fields: fields})
		return
	case errors.Is(err, errInvalidBody), errors.Is(err, backup.ErrUnsupportedVersion):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errInvalidBodyMessage(err)})
		return
	case errors.Is(err, store.ErrNotAuthenticated), errors.Is(err, repository.ErrNoOwner):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicatePhone), errors.Is(err, errSessionElsewhere):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case errors.Is(err, store.ErrAuthentication):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: repository.Message(err)})
		return
	}

	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: repository.Message(err)})
}

func errInvalidBodyMessage(err error) string {
	if errors.Is(err, backup.ErrUnsupportedVersion) {
		return backup.ErrUnsupportedVersion.Error()
	}
	return errInvalidBody.Error()
}
