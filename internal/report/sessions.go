package report

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Session holds information about a connected report consumer
type Session struct {
	SessionID     string
	Role          string
	ConnectedAt   time.Time
	LastHeardFrom time.Time
	Conn          net.Conn
	mu            sync.RWMutex
}

// UpdateLastHeardFrom updates the last activity timestamp
func (s *Session) UpdateLastHeardFrom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeardFrom = time.Now()
}

// GetLastHeardFrom returns the last activity timestamp
func (s *Session) GetLastHeardFrom() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastHeardFrom
}

// SessionManager tracks all active consumer sessions
type SessionManager struct {
	sessions map[string]*Session // key: session_id
	byRole   map[string][]string // key: role, value: []session_id
	mu       sync.RWMutex
	maxConns int
}

// NewSessionManager creates a new session manager
func NewSessionManager(maxSessions int) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		byRole:   make(map[string][]string),
		maxConns: maxSessions,
	}
}

// Register adds a new consumer session
func (m *SessionManager) Register(sessionID, role string, conn net.Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxConns {
		return ErrMaxSessionsReached
	}

	if _, exists := m.sessions[sessionID]; exists {
		return fmt.Errorf("session ID %s already registered", sessionID)
	}

	now := time.Now()
	session := &Session{
		SessionID:     sessionID,
		Role:          role,
		ConnectedAt:   now,
		LastHeardFrom: now,
		Conn:          conn,
	}

	m.sessions[sessionID] = session
	m.byRole[role] = append(m.byRole[role], sessionID)

	return nil
}

// Unregister removes a consumer session
func (m *SessionManager) Unregister(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session ID %s not found", sessionID)
	}

	role := session.Role
	if ids, ok := m.byRole[role]; ok {
		for i, id := range ids {
			if id == sessionID {
				m.byRole[role] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(m.byRole[role]) == 0 {
			delete(m.byRole, role)
		}
	}

	delete(m.sessions, sessionID)

	return nil
}

// Get retrieves a session by ID
func (m *SessionManager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	return session, exists
}

// UpdateActivity updates the last heard from timestamp for a session
func (m *SessionManager) UpdateActivity(sessionID string) error {
	m.mu.RLock()
	session, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session ID %s not found", sessionID)
	}

	session.UpdateLastHeardFrom()
	return nil
}

// Count returns the total number of active sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CountByRole returns the number of active sessions per role
func (m *SessionManager) CountByRole() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int)
	for role, ids := range m.byRole {
		result[role] = len(ids)
	}
	return result
}

// Stats returns statistics about the session manager
func (m *SessionManager) Stats() SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return SessionStats{
		TotalSessions: len(m.sessions),
		UniqueRoles:   len(m.byRole),
		MaxSessions:   m.maxConns,
	}
}

// SessionStats contains statistics about the session manager
type SessionStats struct {
	TotalSessions int
	UniqueRoles   int
	MaxSessions   int
}

var (
	ErrMaxSessionsReached = &SessionError{"maximum sessions reached"}
)

// SessionError represents a session error
type SessionError struct {
	msg string
}

func (e *SessionError) Error() string {
	return e.msg
}
