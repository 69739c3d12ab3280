package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"
)

// AccountStore is the durable record of accounts.
type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (*Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, acc *Account, roles []RoleRecord) (*Account, error)
}

// AttemptLimiter counts failed sign-ins per key.
type AttemptLimiter interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Service authenticates accounts, registers new ones and mints session
// tokens. Its collaborators are read-only after construction.
type Service struct {
	accounts AccountStore
	roles    *RoleRegistry
	hasher   Hasher
	tokens   *TokenService
	limiter  AttemptLimiter
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(accounts AccountStore, roles *RoleRegistry, hasher Hasher, tokens *TokenService, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		roles:    roles,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}
}

// WithLimiter enables sign-in throttling. A nil limiter disables it.
func (s *Service) WithLimiter(l AttemptLimiter) *Service {
	s.limiter = l
	return s
}

func (s *Service) Tokens() *TokenService { return s.tokens }

func (s *Service) Roles() *RoleRegistry { return s.roles }

// Authenticate verifies username and password. An unknown username and a
// wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	acc, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return acc.Identity(), nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*Account, error) {
	acc, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Burn one comparison so the unknown-user path costs the same.
			s.hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, acc.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("booktracker-timing-equaliser")
		if err != nil {
			s.logger.Warn("dummy hash unavailable", "err", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

type SignInResult struct {
	Token   string
	Account *Account
}

// SignIn authenticates and issues a session token. When a limiter is
// configured, too many recent failures for the username yield
// ErrTooManyAttempts before the password is checked. Limiter errors are
// logged and ignored.
func (s *Service) SignIn(ctx context.Context, username, password string) (res *SignInResult, err error) {
	defer func() { signInTotal.WithLabelValues(outcomeLabel(err)).Inc() }()

	if s.limiter != nil {
		blocked, lerr := s.limiter.Blocked(ctx, username)
		if lerr != nil {
			s.logger.Warn("sign-in limiter unavailable", "err", lerr)
		} else if blocked {
			return nil, ErrTooManyAttempts
		}
	}

	acc, err := s.authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) && s.limiter != nil {
			if lerr := s.limiter.RecordFailure(ctx, username); lerr != nil {
				s.logger.Warn("record failed sign-in", "err", lerr)
			}
		}
		return nil, err
	}
	if s.limiter != nil {
		if lerr := s.limiter.Reset(ctx, username); lerr != nil {
			s.logger.Warn("reset sign-in attempts", "err", lerr)
		}
	}

	token, err := s.tokens.Issue(acc.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &SignInResult{Token: token, Account: acc}, nil
}

// Register creates an account bound to the default role. Input is
// validated before any lookup; duplicates are checked username first.
func (s *Service) Register(ctx context.Context, username, email, password string) (acc *Account, err error) {
	defer func() { signUpTotal.WithLabelValues(outcomeLabel(err)).Inc() }()

	if err := ValidateSignup(username, email, password); err != nil {
		return nil, err
	}

	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUsername
	}
	inUse, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, ErrDuplicateEmail
	}

	role, ok := s.roles.Lookup(DefaultRole)
	if !ok {
		s.logger.Error("default role missing from registry", "role", DefaultRole)
		return nil, fmt.Errorf("%w: %s", ErrRoleRegistryCorrupt, DefaultRole)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.Create(ctx, &Account{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
	}, []RoleRecord{role})
}

const (
	usernameMin = 3
	usernameMax = 20
	emailMax    = 50
	passwordMin = 6
	passwordMax = 40
	// bcrypt refuses input longer than this many bytes.
	passwordMaxBytes = 72
)

// ValidateSignup checks sign-up input field by field and returns the first
// failure as a *ValidationError.
func ValidateSignup(username, email, password string) error {
	if err := checkLength("username", username, usernameMin, usernameMax); err != nil {
		return err
	}
	if err := checkLength("email", email, 0, emailMax); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Kind: KindInvalidEmail}
	}
	if err := checkLength("password", password, passwordMin, passwordMax); err != nil {
		return err
	}
	if len(password) > passwordMaxBytes {
		return &ValidationError{Field: "password", Kind: KindTooLong, Limit: passwordMaxBytes, Unit: "bytes"}
	}
	return nil
}

func checkLength(field, v string, lo, hi int) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Kind: KindRequired}
	}
	n := utf8.RuneCountInString(v)
	if n < lo {
		return &ValidationError{Field: field, Kind: KindTooShort, Limit: lo}
	}
	if n > hi {
		return &ValidationError{Field: field, Kind: KindTooLong, Limit: hi}
	}
	return nil
}
