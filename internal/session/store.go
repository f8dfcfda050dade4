package session

import (
	"errors"
	"fmt"
	"sync"

	"toolgate/pkg/logging"

	"github.com/google/uuid"
)

const (
	// MaxSessionIDLength bounds ids accepted from clients. Longer values are
	// rejected before any table lookup.
	MaxSessionIDLength = 256

	// DefaultMaxSessions is the default per-binding limit on live sessions.
	DefaultMaxSessions = 10000
)

// Binding identifies one of the two wire bindings. Each binding has its own
// id namespace.
type Binding string

const (
	BindingSSE        Binding = "sse"
	BindingStreamable Binding = "streamable"
)

// Bindings lists every binding the store keeps a table for.
var Bindings = []Binding{BindingSSE, BindingStreamable}

var (
	// ErrSessionExists is returned by Register when the (binding, id) pair is
	// already taken.
	ErrSessionExists = errors.New("session already registered")

	// ErrUnknownBinding is returned for a Binding the store has no table for.
	ErrUnknownBinding = errors.New("unknown binding")
)

// Handle is a live, stateful connection owned by a store entry.
type Handle interface {
	SessionID() string
	Close() error
}

// Observer is notified whenever a table gains or loses an entry.
type Observer interface {
	SessionOpened(b Binding)
	SessionClosed(b Binding)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(Binding) {}
func (nopObserver) SessionClosed(Binding) {}

// Store maps session ids to live handles, one table per binding.
// All methods are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	tables      map[Binding]map[string]Handle
	maxSessions int
	observer    Observer
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSessions limits the number of live sessions per binding.
// Zero disables the limit.
func WithMaxSessions(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithObserver registers an Observer for table changes.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		tables:      make(map[Binding]map[string]Handle, len(Bindings)),
		maxSessions: DefaultMaxSessions,
		observer:    nopObserver{},
	}
	for _, b := range Bindings {
		s.tables[b] = make(map[string]Handle)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession returns a fresh random session id. The id is not reserved;
// it becomes routable only once Register succeeds.
func (s *Store) CreateSession() string {
	return uuid.NewString()
}

// Register makes h routable under (b, id).
func (s *Store) Register(b Binding, id string, h Handle) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("register session %s: nil handle", logging.TruncateSessionID(id))
	}

	s.mu.Lock()
	table, ok := s.tables[b]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownBinding, b)
	}
	if _, exists := table[id]; exists {
		s.mu.Unlock()
		return ErrSessionExists
	}
	if s.maxSessions > 0 && len(table) >= s.maxSessions {
		current := len(table)
		s.mu.Unlock()
		return &SessionLimitExceededError{Binding: b, Limit: s.maxSessions, Current: current}
	}
	table[id] = h
	s.mu.Unlock()

	s.observer.SessionOpened(b)
	logging.Debug("Session", "Registered %s session %s", b, logging.TruncateSessionID(id))
	return nil
}

// Lookup returns the handle registered under (b, id).
func (s *Store) Lookup(b Binding, id string) (Handle, bool) {
	if ValidateSessionID(id) != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.tables[b][id]
	return h, ok
}

// Remove deletes the entry for (b, id). It reports whether an entry existed;
// removing an absent entry is a no-op.
func (s *Store) Remove(b Binding, id string) bool {
	s.mu.Lock()
	table, ok := s.tables[b]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if _, exists := table[id]; !exists {
		s.mu.Unlock()
		return false
	}
	delete(table, id)
	s.mu.Unlock()

	s.observer.SessionClosed(b)
	logging.Debug("Session", "Removed %s session %s", b, logging.TruncateSessionID(id))
	return true
}

// Count returns the number of live sessions for b.
func (s *Store) Count(b Binding) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[b])
}

// CloseAll closes every registered handle. Handles deregister themselves
// through their close hooks; any entry still present afterwards is dropped.
func (s *Store) CloseAll() {
	type entry struct {
		b  Binding
		id string
		h  Handle
	}

	s.mu.RLock()
	var entries []entry
	for b, table := range s.tables {
		for id, h := range table {
			entries = append(entries, entry{b: b, id: id, h: h})
		}
	}
	s.mu.RUnlock()

	for _, e := range entries {
		if err := e.h.Close(); err != nil {
			logging.Warn("Session", "Error closing %s session %s: %v", e.b, logging.TruncateSessionID(e.id), err)
		}
		s.Remove(e.b, e.id)
	}

	if len(entries) > 0 {
		logging.Info("Session", "Closed %d sessions", len(entries))
	}
}

// ValidateSessionID checks an id received from a client.
//
// A valid session ID must be:
//   - Non-empty
//   - Not longer than MaxSessionIDLength
//   - Composed of visible ASCII characters only
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return &InvalidSessionIDError{Reason: "session ID cannot be empty"}
	}
	if len(sessionID) > MaxSessionIDLength {
		return &InvalidSessionIDError{Reason: fmt.Sprintf("session ID exceeds maximum length of %d", MaxSessionIDLength)}
	}
	for i := 0; i < len(sessionID); i++ {
		if c := sessionID[i]; c < 0x21 || c > 0x7e {
			return &InvalidSessionIDError{Reason: "session ID contains non-visible characters"}
		}
	}
	return nil
}

// InvalidSessionIDError is returned when a session ID fails validation.
type InvalidSessionIDError struct {
	Reason string
}

func (e *InvalidSessionIDError) Error() string {
	return "invalid session ID: " + e.Reason
}

// SessionLimitExceededError is returned when a binding's table is full.
type SessionLimitExceededError struct {
	Binding Binding
	Limit   int
	Current int
}

func (e *SessionLimitExceededError) Error() string {
	return fmt.Sprintf("%s session limit exceeded: %d/%d sessions", e.Binding, e.Current, e.Limit)
}
