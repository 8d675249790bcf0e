package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// service implements the Service interface
type service struct {
	repository   Repository
	sessions     SessionStore
	blobStore    BlobStore
	mailer       Mailer
	logger       *slog.Logger
	now          func() time.Time
	passwordCost int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithSessionStore sets the session store used by Login and ResolveSession
func WithSessionStore(store SessionStore) Option {
	return func(s *service) {
		s.sessions = store
	}
}

// WithBlobStore sets the backend holding media files
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithMailer sets the outbound mailer used for message replies
func WithMailer(mailer Mailer) Option {
	return func(s *service) {
		s.mailer = mailer
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithPasswordCost sets the bcrypt cost for new password hashes
func WithPasswordCost(cost int) Option {
	return func(s *service) {
		s.passwordCost = cost
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now:          time.Now,
		passwordCost: bcrypt.DefaultCost,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// Session operations

// dummyHash keeps the cost of a failed lookup close to a failed compare.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

func (s *service) Login(ctx context.Context, req LoginRequest) (string, *Actor, error) {
	if err := ValidateStruct(req); err != nil {
		return "", nil, err
	}

	account, err := s.repository.GetAccountByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return "", nil, InvalidCredentialsError()
		}
		return "", nil, InternalError("load account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, InvalidCredentialsError()
	}

	actor := account.Actor()
	if err := actor.Validate(); err != nil {
		// A tenant admin whose tenant was deleted is detached and cannot act.
		return "", nil, AuthorizationError("account is not attached to a tenant")
	}

	token, err := s.sessions.Create(ctx, actor)
	if err != nil {
		return "", nil, InternalError("create session", err)
	}

	s.logger.Info("Account logged in", "account_id", account.ID.String(), "role", account.Role)
	return token, actor, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return InternalError("destroy session", err)
	}
	return nil
}

func (s *service) ResolveSession(ctx context.Context, token string) (*Actor, error) {
	if token == "" {
		return nil, nil
	}
	actor, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, InternalError("resolve session", err)
	}
	if actor == nil || !actor.IsTenantAdmin() {
		return actor, nil
	}

	// Tenant deletion detaches accounts; sessions issued before it must
	// stop acting for the old tenant.
	account, err := s.repository.GetAccount(ctx, actor.ID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, InternalError("load session account", err)
	case account.TenantID != nil && actor.TenantID != nil && *account.TenantID == *actor.TenantID:
		return actor, nil
	}

	if err := s.sessions.Destroy(ctx, token); err != nil {
		s.logger.WarnContext(ctx, "Failed to destroy stale session", "account_id", actor.ID.String(), "err", err)
	}
	return nil, nil
}

// Account operations

func (s *service) CreateAccount(ctx context.Context, actor *Actor, req CreateAccountRequest) (*Account, error) {
	if err := RequirePlatformAdmin(actor); err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	var tenantID *uuid.UUID
	switch req.Role {
	case RoleTenantAdmin:
		if req.TenantID == nil || *req.TenantID == uuid.Nil {
			return nil, FieldError("tenant_id", "is required for tenant_admin")
		}
		if _, err := s.repository.GetTenant(ctx, *req.TenantID); err != nil {
			return nil, storeError("tenant", "load", err)
		}
		tid := *req.TenantID
		tenantID = &tid
	case RolePlatformAdmin:
		// platform admins are never tenant-scoped
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.passwordCost)
	if err != nil {
		return nil, InternalError("hash password", err)
	}

	now := s.clock()
	account := &Account{
		ID:           uuid.New(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Role:         req.Role,
		TenantID:     tenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repository.CreateAccount(ctx, account); err != nil {
		return nil, storeError("account", "create", err)
	}

	s.logger.Info("Account created", "account_id", account.ID.String(), "role", account.Role)
	return account, nil
}

func (s *service) ListAccounts(ctx context.Context, actor *Actor, tenantID *uuid.UUID) ([]*Account, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}
	accounts, err := s.repository.ListAccounts(ctx, AccountFilter{TenantID: ScopeTenantFilter(actor, tenantID)})
	if err != nil {
		return nil, storeError("account", "list", err)
	}
	return accounts, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
