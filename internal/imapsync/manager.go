package imapsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
	"github.com/oneboxhq/onebox/internal/registry"
)

// AccountParams carries the credentials and transport parameters for a
// single connect call. The password lives only for the lifetime of
// that call and is never retained.
type AccountParams struct {
	Email    string
	Password string
	Host     string
	Port     int
	Secure   bool
}

// Manager owns one long-lived IMAP session per connected account. Each
// session performs a bounded backlog sync and then listens for
// server-pushed new-mail events, feeding every observed message
// through the categorizer and into the external store.
type Manager struct {
	registry      *registry.AccountRegistry
	categorizer   *core.CategorizerService
	store         core.EmailStore
	logger        *zap.Logger
	backlogWindow time.Duration
	heartbeat     time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewManager creates a new connection manager
func NewManager(
	reg *registry.AccountRegistry,
	categorizer *core.CategorizerService,
	store core.EmailStore,
	logger *zap.Logger,
	backlogWindow time.Duration,
	heartbeat time.Duration,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry:      reg,
		categorizer:   categorizer,
		store:         store,
		logger:        logger,
		backlogWindow: backlogWindow,
		heartbeat:     heartbeat,
		sessions:      make(map[string]*session),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// AddAccount validates the request, connects to the account's IMAP
// server, and launches its sync task. A connect or login failure is
// returned to the caller and leaves the registry untouched. Adding an
// account that is already connected is a no-op.
func (m *Manager) AddAccount(ctx context.Context, p AccountParams) error {
	if p.Email == "" || p.Password == "" || p.Host == "" || p.Port == 0 {
		return core.ErrMissingFields
	}

	if !m.registry.RegisterConnecting(p.Email) {
		m.logger.Info("Account already connected", zap.String("email", p.Email))
		return nil
	}

	sess, err := m.connect(ctx, p)
	if err != nil {
		m.registry.ReleaseConnecting(p.Email)
		m.logger.Error("Connection failed",
			zap.String("email", p.Email), zap.Error(err))
		return fmt.Errorf("connecting account %s: %w", p.Email, err)
	}

	m.registry.MarkConnected(core.AccountConfig{
		Email:  p.Email,
		Host:   p.Host,
		Port:   p.Port,
		Secure: p.Secure,
	}, 0)

	m.mu.Lock()
	m.sessions[p.Email] = sess
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sess.run(m.ctx)

		m.registry.MarkDisconnected(p.Email)
		m.mu.Lock()
		delete(m.sessions, p.Email)
		m.mu.Unlock()
	}()

	m.logger.Info("Account connected, sync started", zap.String("email", p.Email))
	return nil
}

// Reconnect looks up the saved configuration for the email and
// re-runs AddAccount with the supplied password and the saved
// transport parameters.
func (m *Manager) Reconnect(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return core.ErrMissingFields
	}

	cfg, ok := m.registry.SavedConfig(email)
	if !ok {
		return core.ErrAccountNotFound
	}

	return m.AddAccount(ctx, AccountParams{
		Email:    cfg.Email,
		Password: password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Secure:   cfg.Secure,
	})
}

// Close tears down all account sessions and waits for their loops to
// finish.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	for _, sess := range m.sessions {
		sess.shutdown()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// ingest parses one raw message, classifies it, and writes it to the
// store tagged with folder, account, and resolved category. The
// notification context is only attached for live events, never during
// backlog sync.
func (m *Manager) ingest(ctx context.Context, raw []byte, folder, account string, live bool) error {
	msg, err := ParseMessage(raw)
	if err != nil {
		return fmt.Errorf("parsing message: %w", err)
	}

	var nc *core.NotifyContext
	if live {
		nc = &core.NotifyContext{
			Subject: msg.Subject,
			From:    msg.From,
			To:      strings.Join(msg.To, ", "),
			Body:    msg.TextBody,
			Date:    msg.Date,
			Folder:  folder,
			Account: account,
		}
	}

	category := m.categorizer.Classify(ctx, msg.Subject, msg.TextBody, nc)

	msg.Folder = folder
	msg.Account = account
	msg.Category = category

	if err := m.store.Store(ctx, msg, folder, account, category); err != nil {
		return fmt.Errorf("storing message: %w", err)
	}
	return nil
}

// processBacklog ingests a batch of raw messages with per-message
// isolation: a message that fails to parse or store is logged and
// skipped without aborting the rest of the batch. It returns the
// number of messages stored. Cancellation is honored between messages
// so shutdown never waits out a large backlog.
func (m *Manager) processBacklog(ctx context.Context, raws [][]byte, folder, account string) int {
	stored := 0
	for i, raw := range raws {
		select {
		case <-ctx.Done():
			m.logger.Info("Backlog processing interrupted",
				zap.String("account", account),
				zap.Int("stored", stored),
				zap.Int("remaining", len(raws)-i))
			return stored
		default:
		}
		if err := m.ingest(ctx, raw, folder, account, false); err != nil {
			m.logger.Warn("Skipping backlog message",
				zap.String("account", account),
				zap.Int("position", i+1),
				zap.Error(err))
			continue
		}
		stored++
	}
	return stored
}
