package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"staytrack/pkg/domain"
)

// ErrEmailTaken is returned when signing up with a registered email.
var ErrEmailTaken = errors.New("email already registered")

// ErrUnknownUser is returned by a Directory when no account matches.
var ErrUnknownUser = errors.New("unknown user")

// User is an account as exposed to callers.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	OwnerID   string      `json:"owner_id"`
	StudentID string      `json:"student_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Session converts the account into a domain session.
func (u User) Session() domain.Session {
	return domain.Session{OwnerID: u.OwnerID, UserID: u.ID, Email: u.Email, Role: u.Role, StudentID: u.StudentID}
}

// Account is a stored user with its password hash.
type Account struct {
	User
	PasswordHash string `json:"password_hash"`
}

// Directory stores accounts and revoked token ids.
type Directory interface {
	Create(ctx context.Context, acct Account) error
	ByEmail(ctx context.Context, email string) (Account, error)
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryDirectory is an in-process Directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	revoked  map[string]time.Time
	now      func() time.Time
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[string]Account),
		revoked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func (d *MemoryDirectory) Create(_ context.Context, acct Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[acct.Email]; ok {
		return ErrEmailTaken
	}
	d.accounts[acct.Email] = acct
	return nil
}

func (d *MemoryDirectory) ByEmail(_ context.Context, email string) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.accounts[email]
	if !ok {
		return Account{}, ErrUnknownUser
	}
	return acct, nil
}

func (d *MemoryDirectory) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	d.revoked[tokenID] = until
	return nil
}

func (d *MemoryDirectory) Revoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

const (
	accountPrefix = "staytrack:auth:account:"
	revokedPrefix = "staytrack:auth:revoked:"
)

// RedisDirectory keeps accounts as JSON values and revoked token ids as keys
// that expire with the token.
type RedisDirectory struct {
	client *redis.Client
}

// NewRedisDirectory wraps an existing client.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{client: client}
}

func (d *RedisDirectory) Create(ctx context.Context, acct Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	ok, err := d.client.SetNX(ctx, accountPrefix+acct.Email, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if !ok {
		return ErrEmailTaken
	}
	return nil
}

func (d *RedisDirectory) ByEmail(ctx context.Context, email string) (Account, error) {
	raw, err := d.client.Get(ctx, accountPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrUnknownUser
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	return acct, nil
}

func (d *RedisDirectory) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

func (d *RedisDirectory) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
