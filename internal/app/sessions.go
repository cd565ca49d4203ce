package app

import (
	"net"
	"sync"
	"time"

	"github.com/bft-labs/fragship/internal/domain"
)

// SessionTable tracks negotiated sessions by peer address. A session lives
// from handshake acceptance until Remove or until it is older than the TTL
// passed to Expire.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewSessionTable creates an empty table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]*domain.Session)}
}

func peerKey(addr net.Addr) string {
	return addr.Network() + "/" + addr.String()
}

// Put registers s under its peer address, replacing any previous session
// from the same peer. The replaced session is returned.
func (t *SessionTable) Put(s *domain.Session) *domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := peerKey(s.Peer)
	prev := t.sessions[key]
	t.sessions[key] = s
	return prev
}

// Get returns the session for peer.
func (t *SessionTable) Get(peer net.Addr) (*domain.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[peerKey(peer)]
	return s, ok
}

// Remove discards the session for peer if it is s.
func (t *SessionTable) Remove(s *domain.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := peerKey(s.Peer)
	if cur, ok := t.sessions[key]; ok && cur.ID == s.ID {
		delete(t.sessions, key)
	}
}

// Expire removes sessions created more than ttl ago and returns them.
func (t *SessionTable) Expire(now time.Time, ttl time.Duration) []*domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []*domain.Session
	for key, s := range t.sessions {
		if now.Sub(s.CreatedAt) > ttl {
			expired = append(expired, s)
			delete(t.sessions, key)
		}
	}
	return expired
}

// Len returns the number of live sessions.
func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
