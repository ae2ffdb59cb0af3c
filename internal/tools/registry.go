package tools

import (
	"sync"

	"github.com/planfactor/planfactor/internal/dialog"
)

// Registry holds live dialog sessions keyed by token. Tool handlers may
// run concurrently, so every session lookup and turn goes through the
// registry's lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*dialog.Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*dialog.Session)}
}

// Put stores a session under its token.
func (r *Registry) Put(s *dialog.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
}

// Remove drops a session.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// View runs fn against the session for token while holding the lock,
// for read-only rendering. It reports false when the token is unknown.
func (r *Registry) View(token string, fn func(*dialog.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if ok {
		fn(s)
	}
	return ok
}

// Turn runs fn against the session for token while holding the lock,
// serializing turns per registry. It reports false when the token is
// unknown.
func (r *Registry) Turn(token string, fn func(*dialog.Session) dialog.Envelope) (dialog.Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return dialog.Envelope{}, false
	}
	return fn(s), true
}
