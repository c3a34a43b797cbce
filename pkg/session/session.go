// Package session holds per-conversation state: the active client and the
// chat transcript. Sessions live in memory only; resetting one never touches
// persisted facts or the graph.
package session

import (
	"errors"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultTTL is how long an idle session survives before the sweep drops it.
const DefaultTTL = 2 * time.Hour

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Message is one chat turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one conversation's state.
type Session struct {
	ID           string    `json:"id"`
	ClientSlug   string    `json:"client_slug"`
	BusinessType string    `json:"business_type"`
	History      []Message `json:"history"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Registry is a TTL-bounded in-memory session store.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates a registry. A ttl of zero means DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:      ttl,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// Create opens a new session bound to a client.
func (r *Registry) Create(clientSlug, businessType string) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	now := r.now()
	s := &Session{
		ID:           id,
		ClientSlug:   clientSlug,
		BusinessType: businessType,
		History:      []Message{},
		CreatedAt:    now,
		LastSeenAt:   now,
	}
	r.sessions[id] = s
	return r.copyLocked(s), nil
}

// Get returns a snapshot of the session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.LastSeenAt = r.now()
	return r.copyLocked(s), nil
}

// Append records one chat turn and refreshes the idle timer.
func (r *Registry) Append(id string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.History = append(s.History, msg)
	s.LastSeenAt = r.now()
	return nil
}

// SetClient switches the session's active client and clears the transcript;
// history from one client must not leak into another's conversation.
func (r *Registry) SetClient(id, clientSlug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.ClientSlug != clientSlug {
		s.History = []Message{}
	}
	s.ClientSlug = clientSlug
	s.LastSeenAt = r.now()
	return nil
}

// Delete drops the session. Deleting an unknown id is not an error.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports live (unexpired) sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.sessions)
}

func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, s := range r.sessions {
		if s.LastSeenAt.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}

func (r *Registry) copyLocked(s *Session) *Session {
	out := *s
	out.History = append([]Message{}, s.History...)
	return &out
}
