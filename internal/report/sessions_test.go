package report

import (
	"net"
	"testing"
	"time"
)

type mockAddr struct{}

func (m *mockAddr) Network() string { return "tcp" }
func (m *mockAddr) String() string  { return "127.0.0.1:0" }

type mockConn struct{}

func (m *mockConn) Read(b []byte) (n int, err error)   { return 0, nil }
func (m *mockConn) Write(b []byte) (n int, err error)  { return len(b), nil }
func (m *mockConn) Close() error                       { return nil }
func (m *mockConn) LocalAddr() net.Addr                { return &mockAddr{} }
func (m *mockConn) RemoteAddr() net.Addr               { return &mockAddr{} }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

func TestSessionManager_Register(t *testing.T) {
	m := NewSessionManager(10)
	conn := &mockConn{}

	err := m.Register("sess1", "analyst", conn)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Count())
	}

	session, exists := m.Get("sess1")
	if !exists {
		t.Fatal("Session not found")
	}

	if session.Role != "analyst" {
		t.Errorf("Expected role analyst, got %s", session.Role)
	}
}

func TestSessionManager_RegisterMaxSessions(t *testing.T) {
	m := NewSessionManager(2)
	conn := &mockConn{}

	m.Register("sess1", "analyst", conn)
	m.Register("sess2", "admin", conn)

	// Third session should fail
	err := m.Register("sess3", "support", conn)
	if err != ErrMaxSessionsReached {
		t.Errorf("Expected ErrMaxSessionsReached, got %v", err)
	}
}

func TestSessionManager_Unregister(t *testing.T) {
	m := NewSessionManager(10)
	conn := &mockConn{}

	m.Register("sess1", "analyst", conn)
	m.Register("sess2", "analyst", conn)

	err := m.Unregister("sess1")
	if err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Count())
	}

	// Role should still have one session
	counts := m.CountByRole()
	if counts["analyst"] != 1 {
		t.Errorf("Expected 1 analyst session, got %d", counts["analyst"])
	}
}

func TestSessionManager_CountByRole(t *testing.T) {
	m := NewSessionManager(10)
	conn := &mockConn{}

	m.Register("sess1", "analyst", conn)
	m.Register("sess2", "analyst", conn)
	m.Register("sess3", "admin", conn)

	counts := m.CountByRole()
	if counts["analyst"] != 2 {
		t.Errorf("Expected 2 analyst sessions, got %d", counts["analyst"])
	}
	if counts["admin"] != 1 {
		t.Errorf("Expected 1 admin session, got %d", counts["admin"])
	}
}

func TestSessionManager_UpdateActivity(t *testing.T) {
	m := NewSessionManager(10)
	conn := &mockConn{}

	m.Register("sess1", "analyst", conn)

	session, _ := m.Get("sess1")
	firstHeard := session.GetLastHeardFrom()

	time.Sleep(10 * time.Millisecond)

	err := m.UpdateActivity("sess1")
	if err != nil {
		t.Fatalf("UpdateActivity failed: %v", err)
	}

	session, _ = m.Get("sess1")
	secondHeard := session.GetLastHeardFrom()

	if !secondHeard.After(firstHeard) {
		t.Error("LastHeardFrom was not updated")
	}
}

func TestSessionManager_Stats(t *testing.T) {
	m := NewSessionManager(100)
	conn := &mockConn{}

	m.Register("sess1", "analyst", conn)
	m.Register("sess2", "analyst", conn)
	m.Register("sess3", "admin", conn)

	stats := m.Stats()
	if stats.TotalSessions != 3 {
		t.Errorf("Expected 3 sessions, got %d", stats.TotalSessions)
	}
	if stats.UniqueRoles != 2 {
		t.Errorf("Expected 2 unique roles, got %d", stats.UniqueRoles)
	}
	if stats.MaxSessions != 100 {
		t.Errorf("Expected max 100, got %d", stats.MaxSessions)
	}
}
