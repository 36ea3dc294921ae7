package chat

import (
	"sync"

	"github.com/dariusai/darius/internal/bus"
	"github.com/google/uuid"
)

// Store holds the ordered conversation log and session identity. Append
// order is the single source of truth for rendering order: an operation
// that started earlier but finishes later still appends at completion time.
//
// The store is the only shared mutable state in the client. Mutators are
// called by the orchestrator; everything else observes through bus events.
type Store struct {
	mu        sync.RWMutex
	messages  []Message
	sessionID string
	connected bool
	bus       *bus.Bus
}

// NewStore creates an empty store with a fresh session id.
func NewStore(b *bus.Bus) *Store {
	return &Store{
		sessionID: uuid.New().String(),
		bus:       b,
	}
}

// AddMessage appends msg to the end of the log and notifies observers.
func (s *Store) AddMessage(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.publish(bus.KindMessageAdded, msg)
}

// UpdateMessage merges patch into the message with the given id, preserving
// ID, Role and Timestamp. Unknown ids are a no-op.
func (s *Store) UpdateMessage(id string, patch Patch) {
	s.mu.Lock()
	var updated *Message
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		m := &s.messages[i]
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if patch.Type != nil {
			m.Type = *patch.Type
		}
		if patch.Suggestions != nil {
			m.Suggestions = patch.Suggestions
		}
		if patch.Metadata != nil {
			m.Metadata = patch.Metadata
		}
		updated = m
		break
	}
	var copied Message
	if updated != nil {
		copied = *updated
	}
	s.mu.Unlock()

	if updated != nil {
		s.publish(bus.KindMessageUpdated, copied)
	}
}

// ClearMessages empties the log. Session identity is not touched.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.publish(bus.KindMessageCleared, nil)
}

// Messages returns a snapshot of the conversation in insertion order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessage returns the most recent message, or false if the log is empty.
func (s *Store) LastMessage() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// MessagesByRole returns all messages authored by role, in order.
func (s *Store) MessagesByRole(role Role) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Message
	for _, m := range s.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SessionID returns the current session token.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// SetSessionID replaces the session token (used when the backend assigns one).
func (s *Store) SetSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
	s.publish(bus.KindSessionReset, id)
}

// Connected reports the last known reachability of the backend.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetConnected records backend reachability and notifies observers on change.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()
	if changed {
		s.publish(bus.KindSessionConnectivity, connected)
	}
}

func (s *Store) publish(kind string, payload any) {
	if s.bus != nil {
		s.bus.Emit(kind, payload)
	}
}
