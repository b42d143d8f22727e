package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

func newTestRegistry(t *testing.T) *AccountRegistry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "accounts.json"), zap.NewNop())
}

func TestLoadOnStartupColdStart(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.LoadOnStartup())
	assert.Empty(t, r.ListSavedConfigs())
}

func TestRegisterConnecting(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, r.RegisterConnecting("a@x.com"))

	r.MarkConnected(core.AccountConfig{Email: "a@x.com", Host: "imap.x.com", Port: 993, Secure: true}, 0)
	assert.False(t, r.RegisterConnecting("a@x.com"), "connected account must not reconnect")
	assert.True(t, r.RegisterConnecting("b@x.com"))
}

func TestRegisterConnectingReservesSlot(t *testing.T) {
	r := newTestRegistry(t)

	// A second add racing the first during the connect window must be
	// refused before it dials, not after both sessions are up.
	assert.True(t, r.RegisterConnecting("a@x.com"))
	assert.False(t, r.RegisterConnecting("a@x.com"),
		"second add for the same email must be refused while connecting")

	r.ReleaseConnecting("a@x.com")
	assert.True(t, r.RegisterConnecting("a@x.com"),
		"failed connect must give the slot back")
}

func TestMarkConnectedDeduplicatesDirectory(t *testing.T) {
	r := newTestRegistry(t)
	cfg := core.AccountConfig{Email: "a@x.com", Host: "imap.x.com", Port: 993, Secure: true}

	r.MarkConnected(cfg, 0)
	r.MarkConnected(cfg, 0)

	accounts := r.ListConnected()
	require.Len(t, accounts, 1)
	assert.Equal(t, "a@x.com", accounts[0].Email)
	assert.Equal(t, "connected", accounts[0].Status)
	assert.Equal(t, "IMAP", accounts[0].Provider)
}

func TestPersistedConfigOmitsPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	r := New(path, zap.NewNop())

	r.MarkConnected(core.AccountConfig{Email: "user@test.com", Host: "imap.test.com", Port: 993, Secure: true}, 0)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(data)), "password")
	assert.Contains(t, string(data), "user@test.com")
}

func TestSavedConfigsSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	r1 := New(path, zap.NewNop())
	r1.MarkConnected(core.AccountConfig{Email: "a@x.com", Host: "imap.x.com", Port: 143, Secure: false}, 0)

	// New registry instance simulating a process restart
	r2 := New(path, zap.NewNop())
	require.NoError(t, r2.LoadOnStartup())

	cfg, ok := r2.SavedConfig("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "imap.x.com", cfg.Host)
	assert.Equal(t, 143, cfg.Port)
	assert.False(t, cfg.Secure)

	// Directory is runtime state and does not survive restart
	assert.Empty(t, r2.ListConnected())
	assert.True(t, r2.RegisterConnecting("a@x.com"), "restored account is not connected yet")
}

func TestSavedConfigNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, ok := r.SavedConfig("ghost@x.com")
	assert.False(t, ok)
}

func TestMarkDisconnected(t *testing.T) {
	r := newTestRegistry(t)
	r.MarkConnected(core.AccountConfig{Email: "a@x.com", Host: "h", Port: 993, Secure: true}, 0)

	r.MarkDisconnected("a@x.com")

	assert.True(t, r.RegisterConnecting("a@x.com"))
	accounts := r.ListConnected()
	require.Len(t, accounts, 1, "directory entry stays present after teardown")
	assert.Equal(t, "disconnected", accounts[0].Status)
}
