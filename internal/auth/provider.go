package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// CredentialProvider checks an identifier and password pair. Exactly one
// provider is active per process, chosen from config at startup.
type CredentialProvider interface {
	// Authenticate accepts a username or an email. Checks run in a fixed order:
	// unknown identifier, deactivated account, wrong password, unverified email.
	Authenticate(ctx context.Context, identifier, plaintext string) (*user.User, error)
	// User returns the account an access token was issued for
	User(ctx context.Context, id uuid.UUID) (*user.User, error)
	// Mode is the config name of the provider
	Mode() string
}

// checkAccount applies the gates that follow a successful lookup
func checkAccount(hasher *password.Hasher, u *user.User, plaintext string) error {
	if !u.IsActive {
		return ErrAccountDeactivated
	}
	if !hasher.Verify(plaintext, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	if !u.IsVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// DatabaseProvider authenticates against the users table
type DatabaseProvider struct {
	users     user.Store
	hasher    *password.Hasher
	now       func() time.Time
	dummyHash string
}

func NewDatabaseProvider(users user.Store, hasher *password.Hasher, now func() time.Time) (*DatabaseProvider, error) {
	// Compared against when the identifier is unknown so both paths cost one bcrypt run
	dummyHash, err := hasher.Hash("unknown-account-placeholder")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare placeholder hash: %w", err)
	}

	return &DatabaseProvider{
		users:     users,
		hasher:    hasher,
		now:       now,
		dummyHash: dummyHash,
	}, nil
}

func (p *DatabaseProvider) Mode() string {
	return config.ProviderDatabase
}

// Authenticate records the login time on success
func (p *DatabaseProvider) Authenticate(ctx context.Context, identifier, plaintext string) (*user.User, error) {
	if identifier == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := p.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			p.hasher.Verify(plaintext, p.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := checkAccount(p.hasher, u, plaintext); err != nil {
		return nil, err
	}

	now := p.now().UTC()
	if err := p.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	return u, nil
}

func (p *DatabaseProvider) User(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return p.users.GetByID(ctx, id)
}

// staticFile is the layout of the static credentials YAML file
type staticFile struct {
	Users []staticEntry `yaml:"users"`
}

type staticEntry struct {
	Username     string `yaml:"username"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Verified     *bool  `yaml:"verified"`
	Active       *bool  `yaml:"active"`
}

// StaticProvider authenticates against a fixed set of accounts loaded from
// YAML. It never writes; last login is not recorded.
type StaticProvider struct {
	hasher    *password.Hasher
	byName    map[string]*user.User
	byEmail   map[string]*user.User
	byID      map[uuid.UUID]*user.User
	dummyHash string
}

// LoadStaticProvider reads the credentials file at path
func LoadStaticProvider(path string, hasher *password.Hasher) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static credentials: %w", err)
	}
	return NewStaticProvider(data, hasher)
}

// NewStaticProvider parses YAML of the form
//
//	users:
//	  - username: admin
//	    email: admin@example.com
//	    password_hash: $2a$10$...
//	    verified: true   # default true
//	    active: true     # default true
func NewStaticProvider(data []byte, hasher *password.Hasher) (*StaticProvider, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse static credentials: %w", err)
	}

	dummyHash, err := hasher.Hash("unknown-account-placeholder")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare placeholder hash: %w", err)
	}

	p := &StaticProvider{
		hasher:    hasher,
		byName:    make(map[string]*user.User, len(file.Users)),
		byEmail:   make(map[string]*user.User, len(file.Users)),
		byID:      make(map[uuid.UUID]*user.User, len(file.Users)),
		dummyHash: dummyHash,
	}

	for i, entry := range file.Users {
		if entry.Username == "" || entry.PasswordHash == "" {
			return nil, fmt.Errorf("static credentials entry %d: username and password_hash are required", i)
		}
		if _, dup := p.byName[entry.Username]; dup {
			return nil, fmt.Errorf("static credentials: duplicate username %q", entry.Username)
		}
		if _, dup := p.byEmail[entry.Email]; dup && entry.Email != "" {
			return nil, fmt.Errorf("static credentials: duplicate email %q", entry.Email)
		}

		u := &user.User{
			// Stable across restarts so issued access tokens stay valid
			ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("static:"+entry.Username)),
			Username:     entry.Username,
			Email:        entry.Email,
			PasswordHash: entry.PasswordHash,
			IsVerified:   entry.Verified == nil || *entry.Verified,
			IsActive:     entry.Active == nil || *entry.Active,
		}

		p.byName[u.Username] = u
		if u.Email != "" {
			p.byEmail[u.Email] = u
		}
		p.byID[u.ID] = u
	}

	return p, nil
}

func (p *StaticProvider) Mode() string {
	return config.ProviderStatic
}

func (p *StaticProvider) Authenticate(_ context.Context, identifier, plaintext string) (*user.User, error) {
	if identifier == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}

	u, ok := p.byName[identifier]
	if !ok {
		u, ok = p.byEmail[identifier]
	}
	if !ok {
		p.hasher.Verify(plaintext, p.dummyHash)
		return nil, ErrInvalidCredentials
	}

	if err := checkAccount(p.hasher, u, plaintext); err != nil {
		return nil, err
	}

	copied := *u
	return &copied, nil
}

func (p *StaticProvider) User(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := p.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// Len returns the number of configured accounts
func (p *StaticProvider) Len() int {
	return len(p.byName)
}
