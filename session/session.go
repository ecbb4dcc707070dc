package session

import (
	"context"
	"sync"
)

// Record is the persisted form of a session.
type Record struct {
	Values map[string]string `json:"values,omitempty"`
	// Flashed lists keys that were flashed during the request that produced
	// this record. They are dropped by the next save.
	Flashed []string `json:"flashed,omitempty"`
}

// Session is the mutable, request-scoped view of a stored session.
// It is safe for concurrent use by goroutines serving the same request.
type Session struct {
	mu sync.Mutex

	id         string
	previousID string
	values     map[string]string
	flashNew   map[string]struct{}
	flashOld   map[string]struct{}
	dirty      bool
	fresh      bool
}

// New returns an empty session with the given identifier.
func New(id string) *Session {
	return &Session{
		id:       id,
		values:   make(map[string]string),
		flashNew: make(map[string]struct{}),
		flashOld: make(map[string]struct{}),
		fresh:    true,
	}
}

// FromRecord rebuilds a session loaded from a store.
func FromRecord(id string, rec Record) *Session {
	s := New(id)
	s.fresh = false
	for k, v := range rec.Values {
		s.values[k] = v
	}
	for _, k := range rec.Flashed {
		s.flashOld[k] = struct{}{}
	}
	return s
}

// ID returns the current session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// PreviousID returns the identifier replaced by [Session.Regenerate], if any.
// The old record must be deleted when the session is saved.
func (s *Session) PreviousID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousID
}

// Fresh reports whether the session was created during this request.
func (s *Session) Fresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh
}

// Dirty reports whether the session needs to be written back.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty || len(s.flashOld) > 0 || s.previousID != ""
}

func (s *Session) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	delete(s.flashOld, key)
	s.dirty = true
}

func (s *Session) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.flashNew, key)
	delete(s.flashOld, key)
	s.dirty = true
}

// Flash stores value for the remainder of this request and the next one.
func (s *Session) Flash(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.flashNew[key] = struct{}{}
	delete(s.flashOld, key)
	s.dirty = true
}

// Regenerate assigns a new identifier while keeping the data.
// Used after a privilege change to prevent session fixation.
func (s *Session) Regenerate() error {
	id, err := NewID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previousID == "" && !s.fresh {
		s.previousID = s.id
	}
	s.id = id
	s.dirty = true
	return nil
}

// Invalidate drops every value and regenerates the identifier.
func (s *Session) Invalidate() error {
	s.mu.Lock()
	s.values = make(map[string]string)
	s.flashNew = make(map[string]struct{})
	s.flashOld = make(map[string]struct{})
	s.mu.Unlock()
	return s.Regenerate()
}

// Record produces the persisted form and ages flash data: keys flashed by a
// previous request are dropped, keys flashed by this request survive one more.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{Values: make(map[string]string, len(s.values))}
	for k, v := range s.values {
		if _, old := s.flashOld[k]; old {
			continue
		}
		rec.Values[k] = v
	}
	for k := range s.flashNew {
		rec.Flashed = append(rec.Flashed, k)
	}
	return rec
}

// MarkSaved clears the dirty state after a successful save.
func (s *Session) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	s.fresh = false
	s.previousID = ""
}

type sessionContextKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
