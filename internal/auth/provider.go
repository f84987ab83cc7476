// Package auth is the local account provider: bcrypt password hashes, HS256
// session tokens and a revocation list for sign-out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"staytrack/pkg/domain"
)

const (
	issuer            = "staytrack"
	minPasswordLength = 8
	// DefaultTokenTTL applies when the configured TTL is not positive.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Claims is the session token payload.
type Claims struct {
	UserID    string      `json:"uid"`
	OwnerID   string      `json:"oid"`
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role"`
	StudentID string      `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithBcryptCost overrides the hashing cost.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.cost = cost }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Provider signs users up and in and resolves tokens to sessions.
type Provider struct {
	dir    Directory
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *zap.Logger
}

// NewProvider builds a provider. The secret must not be empty.
func NewProvider(dir Directory, secret string, ttl time.Duration, opts ...Option) (*Provider, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	p := &Provider{
		dir:    dir,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("auth")
	return p, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "malformed address %q", email)
	}
	return email, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return domain.Invalid("password", "must be at least %d characters", minPasswordLength)
	}
	return nil
}

// SignUp registers an owner account and returns it with a session token.
func (p *Provider) SignUp(ctx context.Context, email, password, name string) (User, string, error) {
	id := uuid.NewString()
	return p.register(ctx, email, password, User{
		ID:      id,
		Name:    strings.TrimSpace(name),
		Role:    domain.RoleOwner,
		OwnerID: id,
	}, true)
}

// RegisterStudent creates a login for one of the owner's students. The
// caller is responsible for checking that the student exists.
func (p *Provider) RegisterStudent(ctx context.Context, sess domain.Session, studentID, email, password, name string) (User, error) {
	if err := sess.RequireOwner(); err != nil {
		return User{}, err
	}
	if strings.TrimSpace(studentID) == "" {
		return User{}, domain.Invalid("student_id", "is required")
	}
	u, _, err := p.register(ctx, email, password, User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Role:      domain.RoleStudent,
		OwnerID:   sess.OwnerID,
		StudentID: studentID,
	}, false)
	return u, err
}

func (p *Provider) register(ctx context.Context, email, password string, u User, issue bool) (User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, "", err
	}
	if err := checkPassword(password); err != nil {
		return User{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}
	u.Email = email
	u.CreatedAt = p.now().UTC()
	if err := p.dir.Create(ctx, Account{User: u, PasswordHash: string(hash)}); err != nil {
		return User{}, "", err
	}
	p.logger.Info("account created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	if !issue {
		return u, "", nil
	}
	token, err := p.issue(u)
	if err != nil {
		return User{}, "", err
	}
	return u, token, nil
}

// SignIn verifies the password and returns the account with a fresh token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acct, err := p.dir.ByEmail(ctx, email)
	if errors.Is(err, ErrUnknownUser) {
		return User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	token, err := p.issue(acct.User)
	if err != nil {
		return User{}, "", err
	}
	return acct.User, token, nil
}

func (p *Provider) issue(u User) (string, error) {
	now := p.now()
	claims := Claims{
		UserID:    u.ID,
		OwnerID:   u.OwnerID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		StudentID: u.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *Provider) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return claims, nil
}

// CurrentUser resolves a token. Invalid, expired and revoked tokens yield
// domain.ErrNotAuthenticated.
func (p *Provider) CurrentUser(ctx context.Context, token string) (User, error) {
	claims, err := p.parse(token)
	if err != nil {
		return User{}, err
	}
	revoked, err := p.dir.Revoked(ctx, claims.ID)
	if err != nil {
		return User{}, err
	}
	if revoked {
		return User{}, domain.ErrNotAuthenticated
	}
	return User{
		ID:        claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		OwnerID:   claims.OwnerID,
		StudentID: claims.StudentID,
	}, nil
}

// Session resolves a token straight to a domain session.
func (p *Provider) Session(ctx context.Context, token string) (domain.Session, error) {
	u, err := p.CurrentUser(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	return u.Session(), nil
}

// SignOut revokes the token until it would have expired.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return err
	}
	until := p.now().Add(p.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := p.dir.Revoke(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	p.logger.Info("signed out", zap.String("user_id", claims.UserID))
	return nil
}
