package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/backup"
	"github.com/Simplici0/printdesk/internal/loader"
	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/seed"
	"github.com/Simplici0/printdesk/internal/store"
)

// stateView is the part of the store exposed to the browser. Registered
// users and their hashes stay on the server.
type stateView struct {
	User        *models.Profile       `json:"user"`
	Settings    models.Settings       `json:"settings"`
	Locale      string                `json:"locale"`
	Currency    string                `json:"currency"`
	Theme       store.Theme           `json:"theme"`
	SidebarOpen bool                  `json:"sidebarOpen"`
	CurrentPage string                `json:"currentPage"`
	Clients     []models.Client       `json:"clients"`
	Materials   []models.Material     `json:"materials"`
	Inks        []models.Ink          `json:"inks"`
	Services    []models.ServiceOrder `json:"services"`
}

func viewOf(st store.AppState) stateView {
	return stateView{
		User:        st.User,
		Settings:    st.Settings,
		Locale:      st.Locale,
		Currency:    st.Currency,
		Theme:       st.Theme,
		SidebarOpen: st.SidebarOpen,
		CurrentPage: st.CurrentPage,
		Clients:     st.Clients,
		Materials:   st.Materials,
		Inks:        st.Inks,
		Services:    st.Services,
	}
}

type preferencesRequest struct {
	Locale      *string      `json:"locale"`
	Currency    *string      `json:"currency"`
	Theme       *store.Theme `json:"theme"`
	SidebarOpen *bool        `json:"sidebarOpen"`
	CurrentPage *string      `json:"currentPage"`
}

// errSessionElsewhere is returned by the store-backed endpoints when the
// store session belongs to another user. POST /api/state/sync takes it over.
var errSessionElsewhere = errors.New("a sessão local pertence a outro usuário")

// holdSession fails unless the request's user holds the store session.
func (s *server) holdSession(ctx context.Context) error {
	if !s.store.HoldsSession(requestUser(ctx).ID) {
		return errSessionElsewhere
	}
	return nil
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	if err := s.holdSession(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s.store.GetState()))
}

func (s *server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	var in preferencesRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	errs := fieldErrors{}
	if in.Theme != nil && *in.Theme != store.ThemeLight && *in.Theme != store.ThemeDark {
		errs.add("theme", "theme deve ser light ou dark")
	}
	if in.Currency != nil && len(*in.Currency) != 3 {
		errs.add("currency", "currency deve ser um código ISO 4217")
	}
	if err := errs.err(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.holdSession(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}

	if in.Locale != nil {
		s.store.SetLocale(*in.Locale)
	}
	if in.Currency != nil {
		s.store.SetCurrency(*in.Currency)
	}
	if in.Theme != nil {
		s.store.SetTheme(*in.Theme)
	}
	if in.SidebarOpen != nil {
		s.store.SetSidebarOpen(*in.SidebarOpen)
	}
	if in.CurrentPage != nil {
		s.store.SetCurrentPage(*in.CurrentPage)
	}
	writeJSON(w, http.StatusOK, viewOf(s.store.GetState()))
}

// handleSync moves the store session to the request's user and reloads
// every collection of that user into the store.
func (s *server) handleSync(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.SwitchUser(requestUser(r.Context()).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.syncStore(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s.store.GetState()))
}

// syncStore reloads the collections of the request's user. Nothing is
// cached when another user holds the store session.
func (s *server) syncStore(ctx context.Context) error {
	cache := s.cache(ctx)
	if _, err := loader.Run(ctx, "settings.get", s.loadSettings, cache.SetSettings); err != nil {
		return err
	}
	if _, err := loader.Run(ctx, "clients.list", s.repo.Clients.List, cache.SetClients); err != nil {
		return err
	}
	if _, err := loader.Run(ctx, "materials.list", s.repo.Materials.List, cache.SetMaterials); err != nil {
		return err
	}
	if _, err := loader.Run(ctx, "inks.list", s.repo.Inks.List, cache.SetInks); err != nil {
		return err
	}
	if _, err := loader.Run(ctx, "services.list", s.repo.Services.List, cache.SetServices); err != nil {
		return err
	}
	return nil
}

// loadSettings returns the saved settings. When none were saved it falls
// back to the store's settings for the session holder and to the defaults
// for anyone else.
func (s *server) loadSettings(ctx context.Context) (models.Settings, error) {
	settings, err := s.repo.Settings.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		if s.holdSession(ctx) == nil {
			return s.store.GetState().Settings, nil
		}
		return models.DefaultSettings(), nil
	}
	return settings, err
}

func (s *server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := loader.Run(r.Context(), "settings.get", s.loadSettings, s.cache(r.Context()).SetSettings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	current, err := loader.Run(r.Context(), "settings.get", s.loadSettings, s.cache(r.Context()).SetSettings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	patch.Apply(&current)
	if err := validateSettings(current); err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.repo.Settings.Upsert(r.Context(), current)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache(r.Context()).PatchSettings(patch)
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Export(r.Context(), s.repo, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Write(&buf, doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("printdesk-backup-%s.json", doc.ExportedAt.Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleBackupImport(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Read(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		if !errors.Is(err, backup.ErrUnsupportedVersion) {
			err = fmt.Errorf("%w: %w", errInvalidBody, err)
		}
		s.writeError(w, r, err)
		return
	}

	stats, err := backup.Import(r.Context(), s.repo, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("backup restored",
		zap.Int("clients", stats.Clients),
		zap.Int("materials", stats.Materials),
		zap.Int("inks", stats.Inks),
		zap.Int("services", stats.Services),
	)
	if err := s.syncStore(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleSeed(w http.ResponseWriter, r *http.Request) {
	stats, err := seed.Run(r.Context(), s.repo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.syncStore(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.repo.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.repo.Counts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleMigrateCache writes the collections cached in the store to the
// database under fresh ids.
func (s *server) handleMigrateCache(w http.ResponseWriter, r *http.Request) {
	cached := s.store.GetState()
	if cached.Auth.UserID != requestUser(r.Context()).ID {
		s.writeError(w, r, errSessionElsewhere)
		return
	}
	res, err := seed.MigrateFromStore(r.Context(), s.repo, cached)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Moved {
		if err := s.syncStore(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}
