// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Issue(ownerID ulid.ULID) (string, time.Time, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	User      PublicUser
	Token     string
	ExpiresAt time.Time
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service implements signup, signin, account lookup and deletion, and the
// profile update reconciler.
type Service struct {
	users            UserRepository
	hasher           PasswordHasher
	tokens           TokenIssuer
	logger           *slog.Logger
	storeTimeout     time.Duration
	usernameOptional bool
	now              func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreTimeout bounds every repository call.
func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithUsernameOptional lets signup accept an empty username.
func WithUsernameOptional(optional bool) ServiceOption {
	return func(s *Service) {
		s.usernameOptional = optional
	}
}

// WithServiceClock overrides the time source for CreatedAt and UpdatedAt.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. Returns an error if any dependency is nil.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token issuer is required")
	}
	s := &Service{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		logger:       slog.New(slog.DiscardHandler),
		storeTimeout: store.DefaultTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is verified against when the email is unknown so that
// both sign-in failures take the same time. It matches no password.
//
//nolint:gosec // G101: intentionally fake digest, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup creates an account and returns it without its digest.
func (s *Service) Signup(ctx context.Context, in SignupInput) (PublicUser, error) {
	if err := s.validateSignup(in); err != nil {
		return PublicUser{}, oops.Code("AUTH_SIGNUP_INVALID").Wrap(err)
	}

	if in.Username != "" {
		if err := s.ensureUnique(ctx, "username", in.Username, ulid.ULID{}, s.users.GetByUsername); err != nil {
			return PublicUser{}, err
		}
	}
	if err := s.ensureUnique(ctx, "email", in.Email, ulid.ULID{}, s.users.GetByEmail); err != nil {
		return PublicUser{}, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return PublicUser{}, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           ulid.Make(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.create(ctx, user); err != nil {
		return PublicUser{}, err
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID.String())
	return user.Public(), nil
}

func (s *Service) validateSignup(in SignupInput) error {
	if in.Username != "" || !s.usernameOptional {
		if err := ValidateUsername(in.Username); err != nil {
			return err
		}
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// Signin checks credentials and issues a session token.
//
// Unknown email and wrong password fail identically with
// errutil.ErrInvalidCredentials, and both pay for one hash verification.
func (s *Service) Signin(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, oops.Code("AUTH_SIGNIN_INVALID").
			Wrap(errutil.Validation("", "email and password are required"))
	}

	user, lookupErr := s.getByEmail(ctx, email)
	exists := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, errutil.ErrNotFound) {
		return Session{}, oops.Code("AUTH_SIGNIN_FAILED").With("operation", "get user by email").Wrap(lookupErr)
	}

	target := dummyPasswordHash
	if exists {
		target = user.PasswordHash
	}
	valid, verifyErr := s.hasher.Verify(password, target)
	if verifyErr != nil && exists {
		return Session{}, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}
	if !exists || !valid {
		return Session{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(errutil.InvalidCredentials())
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeDigest(ctx, user, password)
	}

	return s.openSession(ctx, user)
}

// upgradeDigest rehashes a legacy digest. Failure is logged; sign-in still succeeds.
func (s *Service) upgradeDigest(ctx context.Context, user *User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID.String(), "error", err)
		return
	}
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if _, err := s.users.Update(sctx, user.ID, UserChanges{PasswordHash: &digest}); err != nil {
		s.logger.WarnContext(ctx, "password digest upgrade not saved", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = digest
	s.logger.InfoContext(ctx, "password digest upgraded", "user_id", user.ID.String())
}

func (s *Service) openSession(ctx context.Context, user *User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "session issued", "user_id", user.ID.String(), "expires_at", expiresAt)
	return Session{User: user.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// GetUser returns the public view of a user.
func (s *Service) GetUser(ctx context.Context, id ulid.ULID) (PublicUser, error) {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.users.GetByID(sctx, id)
	if err != nil {
		return PublicUser{}, oops.Code("USER_GET_FAILED").With("user_id", id.String()).Wrap(classify(err))
	}
	return user.Public(), nil
}

// DeleteAccount removes the caller's own account.
func (s *Service) DeleteAccount(ctx context.Context, actor, id ulid.ULID) error {
	if err := RequireOwner(actor, id); err != nil {
		return err
	}
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Delete(sctx, id); err != nil {
		return oops.Code("USER_DELETE_FAILED").With("user_id", id.String()).Wrap(classify(err))
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id.String())
	return nil
}

func (s *Service) getByEmail(ctx context.Context, email string) (*User, error) {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.users.GetByEmail(sctx, email)
	return user, classify(err)
}

func (s *Service) create(ctx context.Context, user *User) error {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Create(sctx, user); err != nil {
		return oops.Code("USER_CREATE_FAILED").With("user_id", user.ID.String()).Wrap(classify(err))
	}
	return nil
}

type lookupFunc func(ctx context.Context, value string) (*User, error)

// ensureUnique fails with DuplicateField when another user holds value.
// self is excluded; the zero ID excludes nobody.
func (s *Service) ensureUnique(ctx context.Context, field, value string, self ulid.ULID, lookup lookupFunc) error {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	holder, err := lookup(sctx, value)
	switch {
	case errors.Is(err, errutil.ErrNotFound):
		return nil
	case err != nil:
		return oops.Code("USER_UNIQUE_CHECK_FAILED").With("field", field).Wrap(classify(err))
	case holder.ID != self:
		return oops.Code("USER_DUPLICATE_FIELD").With("field", field).Wrap(errutil.DuplicateField(field))
	}
	return nil
}

// classify turns a bare store timeout into StoreUnavailable.
func classify(err error) error {
	return store.Classify(err, nil)
}
