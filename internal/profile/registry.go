package profile

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the editing state of one browser.
type Session struct {
	ID     string
	Editor *Editor
	Guard  *ImageGuard

	lastSeen time.Time
}

// Registry maps session ids to sessions. Nothing is persisted.
type Registry struct {
	images ImageStore
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry whose editors store images in images.
func NewRegistry(images ImageStore) *Registry {
	return &Registry{
		images:   images,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for id, creating a fresh one under a new id when
// id is unknown.
func (r *Registry) Open(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s
	}

	s := &Session{
		ID:       uuid.NewString(),
		Editor:   NewEditor(r.images),
		Guard:    &ImageGuard{},
		lastSeen: r.now(),
	}
	r.sessions[s.ID] = s
	return s
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			s.Editor.Close()
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
