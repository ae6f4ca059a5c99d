// Package auth provides password hashing and signed session values.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// SessionCookieName is the cookie carrying the signed session subject.
const SessionCookieName = "gp_session"

// Sessions signs and verifies session values with an HMAC secret.
type Sessions struct {
	secret []byte

	// Secure marks the cookie as HTTPS only.
	Secure bool
}

// NewSessions returns a signer using secret.
func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret)}
}

// Value returns the signed cookie value for subject.
func (s *Sessions) Value(subject string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(subject))
	return payload + "." + s.sign(payload)
}

// Verify returns the subject carried by a signed value.
func (s *Sessions) Verify(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(s.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return "", false
	}
	return string(decoded), true
}

// Subject is the signed payload naming userID at a session version.
func Subject(userID string, version int) string {
	return userID + ":" + strconv.Itoa(version)
}

// ParseSubject splits a payload built by Subject.
func ParseSubject(subject string) (userID string, version int, ok bool) {
	i := strings.LastIndexByte(subject, ':')
	if i <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(subject[i+1:])
	if err != nil || version < 0 {
		return "", 0, false
	}
	return subject[:i], version, true
}

// FromRequest returns the subject of the request's session cookie.
func (s *Sessions) FromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return s.Verify(cookie.Value)
}

// SetCookie writes the session cookie for subject.
func (s *Sessions) SetCookie(w http.ResponseWriter, subject string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.Value(subject),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
