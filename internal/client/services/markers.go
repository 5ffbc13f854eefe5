package services

import (
	"sync"
	"time"
)

// Marker keys. These live for the app session only, the Go analog of the
// original tab-scoped markers: they let the route guard distinguish "just
// signed up, session still hydrating" and "sign-out in progress" from a
// genuinely unauthenticated state.
const (
	MarkerJustSignedUp     = "just_signed_up"
	MarkerJustSignedUpTime = "just_signed_up_time"
	MarkerJustLoggedOut    = "just_logged_out"
	MarkerPreventRedirect  = "prevent_redirect"
	MarkerLoggingOut       = "logging_out"
)

// Markers is an in-memory, app-session-scoped string map. All methods are
// safe for concurrent use.
type Markers struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMarkers() *Markers {
	return &Markers{m: make(map[string]string)}
}

func (s *Markers) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *Markers) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *Markers) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Markers) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// MarkSignedUp records that a signup just completed, with its timestamp.
func (s *Markers) MarkSignedUp(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[MarkerJustSignedUp] = "true"
	s.m[MarkerJustSignedUpTime] = now.Format(time.RFC3339Nano)
}

// SignedUpAt returns the signup timestamp if the signup marker is set.
func (s *Markers) SignedUpAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[MarkerJustSignedUp]; !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s.m[MarkerJustSignedUpTime])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ClearSignup drops both signup markers.
func (s *Markers) ClearSignup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, MarkerJustSignedUp)
	delete(s.m, MarkerJustSignedUpTime)
}
