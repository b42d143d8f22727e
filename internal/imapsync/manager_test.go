package imapsync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/adapters/cache"
	"github.com/oneboxhq/onebox/internal/core"
	"github.com/oneboxhq/onebox/internal/registry"
)

type failingLLM struct{}

func (failingLLM) CategorizeEmail(context.Context, string, string) (string, error) {
	return "", errors.New("inference unavailable")
}

type storedCall struct {
	msg      *core.EmailMessage
	folder   string
	account  string
	category core.Category
}

type recordingStore struct {
	mu    sync.Mutex
	calls []storedCall
}

func (s *recordingStore) Store(_ context.Context, msg *core.EmailMessage, folder, account string, category core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storedCall{msg: msg, folder: folder, account: account, category: category})
	return nil
}

func (s *recordingStore) CountForAccount(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls), nil
}

func (s *recordingStore) Search(context.Context, string, string, string) ([]core.EmailMessage, error) {
	return nil, nil
}

func newTestManager(t *testing.T, store core.EmailStore) *Manager {
	t.Helper()
	logger := zap.NewNop()
	categorizer := core.NewCategorizerService(
		failingLLM{},
		cache.NewMemoryCache(100, logger),
		nil,
		logger,
		time.Second,
	)
	reg := registry.New(filepath.Join(t.TempDir(), "accounts.json"), logger)
	return NewManager(reg, categorizer, store, logger, 30*24*time.Hour, 10*time.Minute)
}

func rawMessage(i int, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: sender%d@example.com\r\nTo: me@example.com\r\nSubject: %s\r\n\r\n%s\r\n",
		i, subject, body,
	))
}

func TestProcessBacklogIsolatesMalformedMessages(t *testing.T) {
	store := &recordingStore{}
	m := newTestManager(t, store)

	raws := [][]byte{
		rawMessage(1, "hello", "first"),
		rawMessage(2, "hello", "second"),
		[]byte("completely broken\r\n\r\nnot a message"),
		rawMessage(4, "hello", "fourth"),
		rawMessage(5, "hello", "fifth"),
	}

	stored := m.processBacklog(context.Background(), raws, "INBOX", "a@x.com")

	assert.Equal(t, 4, stored)
	require.Len(t, store.calls, 4)
	for _, call := range store.calls {
		assert.Equal(t, "INBOX", call.folder)
		assert.Equal(t, "a@x.com", call.account)
	}
}

func TestProcessBacklogHonorsCancellation(t *testing.T) {
	store := &recordingStore{}
	m := newTestManager(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raws := [][]byte{
		rawMessage(1, "hello", "first"),
		rawMessage(2, "hello", "second"),
		rawMessage(3, "hello", "third"),
	}

	stored := m.processBacklog(ctx, raws, "INBOX", "a@x.com")

	assert.Zero(t, stored, "shutdown must not wait out the remaining backlog")
	assert.Empty(t, store.calls)
}

func TestIngestTagsMessageWithResolvedCategory(t *testing.T) {
	store := &recordingStore{}
	m := newTestManager(t, store)

	err := m.ingest(context.Background(),
		rawMessage(1, "partnership proposal", "let's collaborate"),
		"INBOX", "a@x.com", false)
	require.NoError(t, err)

	require.Len(t, store.calls, 1)
	call := store.calls[0]
	// Inference always fails in these tests, so the label comes from
	// the fallback rules
	assert.Equal(t, core.CategoryInterested, call.category)
	assert.Equal(t, core.CategoryInterested, call.msg.Category)
	assert.Equal(t, "INBOX", call.msg.Folder)
	assert.Equal(t, "a@x.com", call.msg.Account)
}

func TestIngestReturnsParseError(t *testing.T) {
	store := &recordingStore{}
	m := newTestManager(t, store)

	err := m.ingest(context.Background(), []byte("garbage without headers\r\n\r\n"), "INBOX", "a@x.com", false)
	assert.Error(t, err)
	assert.Empty(t, store.calls)
}

func TestAddAccountValidation(t *testing.T) {
	m := newTestManager(t, &recordingStore{})

	tests := []struct {
		name   string
		params AccountParams
	}{
		{"missing_email", AccountParams{Password: "p", Host: "h", Port: 993}},
		{"missing_password", AccountParams{Email: "a@x.com", Host: "h", Port: 993}},
		{"missing_host", AccountParams{Email: "a@x.com", Password: "p", Port: 993}},
		{"missing_port", AccountParams{Email: "a@x.com", Password: "p", Host: "h"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := m.AddAccount(context.Background(), tc.params)
			assert.ErrorIs(t, err, core.ErrMissingFields)
		})
	}
}

func TestAddAccountConnectFailureReleasesSlot(t *testing.T) {
	m := newTestManager(t, &recordingStore{})
	params := AccountParams{
		Email:    "a@x.com",
		Password: "secret",
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		Secure:   true,
	}

	err := m.AddAccount(context.Background(), params)
	require.Error(t, err)

	// A retry must attempt a fresh connect rather than short-circuit
	// as an already-connected no-op
	err = m.AddAccount(context.Background(), params)
	require.Error(t, err)
}

func TestReconnectUnknownAccount(t *testing.T) {
	m := newTestManager(t, &recordingStore{})

	err := m.Reconnect(context.Background(), "ghost@x.com", "secret")
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
}

func TestReconnectValidation(t *testing.T) {
	m := newTestManager(t, &recordingStore{})

	assert.ErrorIs(t, m.Reconnect(context.Background(), "", "p"), core.ErrMissingFields)
	assert.ErrorIs(t, m.Reconnect(context.Background(), "a@x.com", ""), core.ErrMissingFields)
}
