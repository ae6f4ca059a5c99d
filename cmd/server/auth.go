package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/auth"
	"github.com/Simplici0/printdesk/internal/config"
	"github.com/Simplici0/printdesk/internal/models"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/store"
)

type loginRequest struct {
	Ident    string `json:"ident"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User models.Profile `json:"user"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in store.Registration
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateRegistration(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.RegisterUser(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sessions.SetCookie(w, auth.Subject(user.ID, user.SessionVersion))
	writeJSON(w, http.StatusCreated, sessionResponse{User: user.Profile()})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateLogin(in.Ident, in.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.Login(in.Ident, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sessions.SetCookie(w, auth.Subject(user.ID, user.SessionVersion))
	writeJSON(w, http.StatusOK, sessionResponse{User: user.Profile()})
}

// handleLogout revokes the user's session cookies. The store session is
// cleared only when it belongs to the same user.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.LogoutUser(requestUser(r.Context()).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: requestUser(r.Context()).Profile()})
}

type userKey struct{}

func requestUser(ctx context.Context) models.AuthUser {
	user, _ := ctx.Value(userKey{}).(models.AuthUser)
	return user
}

// cache writes into the store on behalf of the request's user.
func (s *server) cache(ctx context.Context) store.Cache {
	return s.store.CacheFor(requestUser(ctx).ID)
}

// requireSession lets a request through when its signed cookie names a
// registered user at the current session version. That user owns every row
// the request reads or writes, whoever holds the store session.
func (s *server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := s.sessions.FromRequest(r)
		if !ok {
			s.writeError(w, r, store.ErrNotAuthenticated)
			return
		}
		userID, version, ok := auth.ParseSubject(subject)
		if !ok {
			s.sessions.ClearCookie(w)
			s.writeError(w, r, store.ErrNotAuthenticated)
			return
		}
		user, ok := s.store.UserByID(userID)
		if !ok || user.SessionVersion != version {
			s.sessions.ClearCookie(w)
			s.writeError(w, r, store.ErrNotAuthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = repository.WithOwner(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureAdminUser registers the configured admin account once.
func ensureAdminUser(st *store.Store, cfg config.Config, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	user, created, err := st.EnsureUser(store.Registration{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if created {
		logger.Info("admin user created", zap.String("user_id", user.ID))
	}
	return nil
}
