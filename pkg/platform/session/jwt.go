package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
)

// MinSecretLength is the shortest HS256 signing secret NewJWT accepts.
const MinSecretLength = 32

const (
	claimRole   = "role"
	claimTenant = "tenant_id"
	claimEmail  = "email"
)

// JWT is a stateless session store. Tokens are HS256-signed and carry the
// actor; Destroy records the token id until it would have expired anyway.
// The revocation list is process-local.
type JWT struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewJWT creates a JWT session store signing with secret
func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JWT{
		auth:    jwtauth.New("HS256", []byte(secret), nil),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

var _ platform.SessionStore = (*JWT)(nil)

// Create issues a signed token for actor
func (j *JWT) Create(ctx context.Context, actor *platform.Actor) (string, error) {
	if err := actor.Validate(); err != nil {
		return "", err
	}

	now := j.now()
	claims := map[string]interface{}{
		"sub":      actor.ID.String(),
		"jti":      uuid.NewString(),
		claimRole:  string(actor.Role),
		claimEmail: actor.Email,
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(j.ttl))
	if actor.TenantID != nil {
		claims[claimTenant] = actor.TenantID.String()
	}

	_, token, err := j.auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encode session token: %w", err)
	}
	return token, nil
}

// Resolve verifies token and rebuilds the actor. Invalid, expired and
// revoked tokens resolve to nil.
func (j *JWT) Resolve(ctx context.Context, token string) (*platform.Actor, error) {
	parsed, err := j.auth.Decode(token)
	if err != nil || parsed == nil {
		return nil, nil
	}
	if exp := parsed.Expiration(); exp.IsZero() || !j.now().Before(exp) {
		return nil, nil
	}
	if j.isRevoked(parsed.JwtID()) {
		return nil, nil
	}

	id, err := uuid.Parse(parsed.Subject())
	if err != nil {
		return nil, nil
	}
	actor := &platform.Actor{ID: id}
	if v, ok := parsed.Get(claimRole); ok {
		role, _ := v.(string)
		actor.Role = platform.Role(role)
	}
	if v, ok := parsed.Get(claimEmail); ok {
		actor.Email, _ = v.(string)
	}
	if v, ok := parsed.Get(claimTenant); ok {
		if s, _ := v.(string); s != "" {
			tid, err := uuid.Parse(s)
			if err != nil {
				return nil, nil
			}
			actor.TenantID = &tid
		}
	}
	if actor.Validate() != nil {
		return nil, nil
	}
	return actor, nil
}

// Destroy revokes token. Tokens that fail verification are ignored.
func (j *JWT) Destroy(ctx context.Context, token string) error {
	parsed, err := j.auth.Decode(token)
	if err != nil || parsed == nil || parsed.JwtID() == "" {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.pruneLocked()
	j.revoked[parsed.JwtID()] = parsed.Expiration()
	return nil
}

func (j *JWT) isRevoked(jti string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, ok := j.revoked[jti]
	return ok
}

func (j *JWT) pruneLocked() {
	now := j.now()
	for jti, exp := range j.revoked {
		if !now.Before(exp) {
			delete(j.revoked, jti)
		}
	}
}
