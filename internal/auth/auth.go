// Package auth implements per-client login sessions for the operator
// UI. Credentials come from the client registry; sessions live in
// memory and expire after the configured TTL.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/halduskeskus/postiljon/internal/config"
)

// ErrInvalidCredentials is returned for an unknown login or a wrong
// password; callers must not reveal which.
var ErrInvalidCredentials = errors.New("invalid login or password")

// Session represents an authenticated client session
type Session struct {
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager validates logins against the client registry and tracks
// active sessions.
type Manager struct {
	clients    map[string]*config.Client
	cookieName string
	ttl        time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager over the loaded client registry.
func NewManager(clients map[string]*config.Client, cookieName string, ttl time.Duration) *Manager {
	return &Manager{
		clients:    clients,
		cookieName: cookieName,
		ttl:        ttl,
		sessions:   make(map[string]*Session),
	}
}

// generateToken creates a random session token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Login checks credentials and opens a session, returning its token.
func (m *Manager) Login(login, password string) (string, error) {
	client, ok := m.clients[login]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(client.Password), []byte(password)) != 1 {
		return "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	m.mu.Lock()
	m.sessions[token] = &Session{
		Login:     login,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()

	return token, nil
}

// Logout removes a session if it exists.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Lookup returns the session for a token, dropping it when expired.
func (m *Manager) Lookup(token string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, false
	}
	return s, true
}

// Client resolves the configuration record behind a session.
func (m *Manager) Client(login string) (*config.Client, bool) {
	c, ok := m.clients[login]
	return c, ok
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

// SetSessionCookie writes the session cookie on a response.
func (m *Manager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on a response.
func (m *Manager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

type contextKey string

const clientKey contextKey = "client"

// Middleware rejects requests without a live session and stores the
// resolved client record in the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		session, ok := m.Lookup(cookie.Value)
		if !ok {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		client, ok := m.Client(session.Login)
		if !ok {
			http.Error(w, "unknown client", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), clientKey, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientFrom extracts the authenticated client from a request context.
func ClientFrom(ctx context.Context) (*config.Client, bool) {
	c, ok := ctx.Value(clientKey).(*config.Client)
	return c, ok
}
