package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

func staticYAML(t *testing.T, hasher *password.Hasher) []byte {
	t.Helper()
	hash, err := hasher.Hash("Adm1n!pass")
	require.NoError(t, err)

	return []byte(`users:
  - username: admin
    email: admin@x.com
    password_hash: "` + hash + `"
  - username: pending
    email: pending@x.com
    password_hash: "` + hash + `"
    verified: false
  - username: retired
    password_hash: "` + hash + `"
    active: false
`)
}

func TestStaticProvider_Authenticate(t *testing.T) {
	hasher := password.NewHasher(4)
	p, err := NewStaticProvider(staticYAML(t, hasher), hasher)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, config.ProviderStatic, p.Mode())
	assert.Equal(t, 3, p.Len())

	u, err := p.Authenticate(ctx, "admin", "Adm1n!pass")
	require.NoError(t, err)
	assert.Equal(t, "admin@x.com", u.Email)
	assert.True(t, u.IsVerified)

	byEmail, err := p.Authenticate(ctx, "admin@x.com", "Adm1n!pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	tests := []struct {
		identifier, password string
		want                 error
	}{
		{"admin", "wrong", ErrInvalidCredentials},
		{"nobody", "Adm1n!pass", ErrInvalidCredentials},
		{"pending", "Adm1n!pass", ErrEmailNotVerified},
		{"retired", "Adm1n!pass", ErrAccountDeactivated},
		{"retired", "wrong", ErrAccountDeactivated},
	}
	for _, tc := range tests {
		_, err := p.Authenticate(ctx, tc.identifier, tc.password)
		assert.ErrorIs(t, err, tc.want, tc.identifier)
	}
}

func TestStaticProvider_StableIDs(t *testing.T) {
	hasher := password.NewHasher(4)
	data := staticYAML(t, hasher)

	a, err := NewStaticProvider(data, hasher)
	require.NoError(t, err)
	b, err := NewStaticProvider(data, hasher)
	require.NoError(t, err)

	ua, err := a.Authenticate(context.Background(), "admin", "Adm1n!pass")
	require.NoError(t, err)

	ub, err := b.User(context.Background(), ua.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", ub.Username)

	_, err = b.User(context.Background(), uuid.New())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestStaticProvider_InvalidFiles(t *testing.T) {
	hasher := password.NewHasher(4)

	tests := map[string]string{
		"not yaml":           "users: [",
		"missing hash":       "users:\n  - username: admin\n",
		"duplicate username": "users:\n  - {username: a, password_hash: x}\n  - {username: a, password_hash: y}\n",
		"duplicate email":    "users:\n  - {username: a, email: e@x.com, password_hash: x}\n  - {username: b, email: e@x.com, password_hash: y}\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewStaticProvider([]byte(data), hasher)
			assert.Error(t, err)
		})
	}
}

func TestLoadStaticProvider(t *testing.T) {
	hasher := password.NewHasher(4)
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, staticYAML(t, hasher), 0o600))

	p, err := LoadStaticProvider(path, hasher)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	_, err = LoadStaticProvider(filepath.Join(t.TempDir(), "missing.yaml"), hasher)
	assert.Error(t, err)
}

func TestDatabaseProvider_RecordsLastLogin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.verifiedUser(t, "alice", "alice@x.com", "Str0ng!Pass")
	assert.Nil(t, alice.LastLogin)

	provider, err := NewDatabaseProvider(env.store.Users(), env.hasher, env.clock.Now)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderDatabase, provider.Mode())

	_, err = provider.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, env.store.user(alice.ID).LastLogin)

	_, err = provider.Authenticate(context.Background(), "alice", "Str0ng!Pass")
	require.NoError(t, err)
	require.NotNil(t, env.store.user(alice.ID).LastLogin)
	assert.Equal(t, env.clock.Now(), *env.store.user(alice.ID).LastLogin)
}
