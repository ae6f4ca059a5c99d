package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/Simplici0/printdesk/internal/auth"
	"github.com/Simplici0/printdesk/internal/models"
)

var (
	// ErrAuthentication is the parent of every registration and login failure.
	ErrAuthentication = errors.New("falha de autenticação")

	ErrDuplicateEmail  = fmt.Errorf("%w: e-mail já cadastrado", ErrAuthentication)
	ErrDuplicatePhone  = fmt.Errorf("%w: telefone já cadastrado", ErrAuthentication)
	ErrUserNotFound    = fmt.Errorf("%w: usuário não encontrado", ErrAuthentication)
	ErrInvalidPassword = fmt.Errorf("%w: senha inválida", ErrAuthentication)

	// ErrNotAuthenticated is returned when no session is active.
	ErrNotAuthenticated = errors.New("não autenticado")

	errSessionNotHeld = errors.New("session held by another user")
)

func defaultHash(password string) (string, error) {
	return auth.HashPassword(password)
}

func defaultVerify(password, encoded string) bool {
	return auth.VerifyPassword(password, encoded)
}

// Registration is the input of RegisterUser.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// NormalizeEmail trims and lowercases an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegisterUser creates a user and logs it in. Users are left untouched when
// the e-mail or the phone is already taken.
func (s *Store) RegisterUser(in Registration) (models.AuthUser, error) {
	return s.addUser("register_user", in, true)
}

// EnsureUser registers in unless a user with the same e-mail exists. No
// session is started. The bool reports whether a user was created.
func (s *Store) EnsureUser(in Registration) (models.AuthUser, bool, error) {
	email := NormalizeEmail(in.Email)
	for _, u := range s.GetState().Users {
		if u.Email == email {
			return u, false, nil
		}
	}
	user, err := s.addUser("ensure_user", in, false)
	if err != nil {
		return models.AuthUser{}, false, err
	}
	return user, true, nil
}

func (s *Store) addUser(action string, in Registration, login bool) (models.AuthUser, error) {
	email := NormalizeEmail(in.Email)
	phone := NormalizePhone(in.Phone)

	// Fail fast before paying for the hash; the check is repeated under the lock.
	if err := checkAvailable(s.GetState().Users, email, phone); err != nil {
		return models.AuthUser{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return models.AuthUser{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.AuthUser{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Phone:     phone,
		PassHash:  hash,
		CreatedAt: time.Now().UTC(),
	}

	err = s.commit(action, func(st *AppState) error {
		if err := checkAvailable(st.Users, email, phone); err != nil {
			return err
		}
		st.Users = append(st.Users, user)
		if login {
			startSession(st, user)
		}
		return nil
	})
	if err != nil {
		return models.AuthUser{}, err
	}
	return user, nil
}

func checkAvailable(users []models.AuthUser, email, phone string) error {
	for _, u := range users {
		if u.Email == email {
			return ErrDuplicateEmail
		}
		if phone != "" && u.Phone == phone {
			return ErrDuplicatePhone
		}
	}
	return nil
}

// Login resolves ident as a phone number when it has digits and no "@",
// otherwise as an e-mail, and starts a session for the matching user.
func (s *Store) Login(ident, password string) (models.AuthUser, error) {
	ident = NormalizeEmail(ident)
	isPhone := strings.ContainsAny(ident, "0123456789") && !strings.Contains(ident, "@")
	phone := NormalizePhone(ident)

	var user models.AuthUser
	found := false
	for _, u := range s.GetState().Users {
		if (isPhone && u.Phone == phone) || (!isPhone && u.Email == ident) {
			user = u
			found = true
			break
		}
	}
	if !found {
		return models.AuthUser{}, ErrUserNotFound
	}
	if !s.verifyPassword(password, user.PassHash) {
		return models.AuthUser{}, ErrInvalidPassword
	}

	_ = s.commit("login", func(st *AppState) error {
		startSession(st, user)
		return nil
	})
	return user, nil
}

// SwitchUser points the session at an already authenticated user.
func (s *Store) SwitchUser(userID string) (models.AuthUser, error) {
	var user models.AuthUser
	err := s.commit("switch_user", func(st *AppState) error {
		u, ok := findUser(st.Users, userID)
		if !ok {
			return ErrUserNotFound
		}
		user = u
		startSession(st, u)
		return nil
	})
	if err != nil {
		return models.AuthUser{}, err
	}
	return user, nil
}

// startSession logs user in. Collections cached for a different user are
// dropped; collections cached before any login are kept so they can still
// be migrated.
func startSession(st *AppState, user models.AuthUser) {
	if st.Auth.UserID != "" && st.Auth.UserID != user.ID {
		st.Clients = []models.Client{}
		st.Materials = []models.Material{}
		st.Inks = []models.Ink{}
		st.Services = []models.ServiceOrder{}
	}
	st.Auth = Session{UserID: user.ID}
	profile := user.Profile()
	st.User = &profile
}

// Logout clears the session.
func (s *Store) Logout() {
	_ = s.commit("logout", func(st *AppState) error {
		st.Auth = Session{}
		st.User = nil
		return nil
	})
}

// LogoutUser revokes every session cookie of userID and clears the store
// session when it belongs to that user.
func (s *Store) LogoutUser(userID string) error {
	return s.commit("logout", func(st *AppState) error {
		i := slices.IndexFunc(st.Users, func(u models.AuthUser) bool { return u.ID == userID })
		if userID == "" || i < 0 {
			return ErrUserNotFound
		}
		st.Users[i].SessionVersion++
		if st.Auth.UserID == userID {
			st.Auth = Session{}
			st.User = nil
		}
		return nil
	})
}

// HoldsSession reports whether the session belongs to userID.
func (s *Store) HoldsSession(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userID != "" && s.state.Auth.UserID == userID
}

// CurrentUser returns the user the session points at.
func (s *Store) CurrentUser() (models.AuthUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findUser(s.state.Users, s.state.Auth.UserID)
}

// RequireUserID returns the logged-in user's id or ErrNotAuthenticated.
func (s *Store) RequireUserID() (string, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return "", ErrNotAuthenticated
	}
	return user.ID, nil
}

// UserByID looks up a registered user.
func (s *Store) UserByID(id string) (models.AuthUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findUser(s.state.Users, id)
}

func findUser(users []models.AuthUser, id string) (models.AuthUser, bool) {
	if id == "" {
		return models.AuthUser{}, false
	}
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return models.AuthUser{}, false
}
