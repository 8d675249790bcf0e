package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/tendant/simple-platform/pkg/platform"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

type entry struct {
	actor     platform.Actor
	expiresAt time.Time
}

// Memory is a process-local session store holding random opaque tokens.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory creates an in-memory session store
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

var _ platform.SessionStore = (*Memory)(nil)

// Create issues a new token for actor
func (m *Memory) Create(ctx context.Context, actor *platform.Actor) (string, error) {
	if err := actor.Validate(); err != nil {
		return "", err
	}
	token, err := randomToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[token] = entry{actor: copyActor(actor), expiresAt: m.now().Add(m.ttl)}
	return token, nil
}

// Resolve returns the actor for token, or nil when unknown or expired
func (m *Memory) Resolve(ctx context.Context, token string) (*platform.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, token)
		return nil, nil
	}
	actor := copyActor(&e.actor)
	return &actor, nil
}

// Destroy forgets token. Unknown tokens are ignored.
func (m *Memory) Destroy(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}

// Sweep drops expired sessions and reports how many were removed
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

func copyActor(a *platform.Actor) platform.Actor {
	c := *a
	if a.TenantID != nil {
		tid := *a.TenantID
		c.TenantID = &tid
	}
	return c
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
