package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// AccountRegistry tracks connection state for mail accounts and
// persists the non-secret subset of their connection parameters so
// accounts can be reconnected after a restart. Passwords never reach
// durable storage through any code path.
//
// All state is owned by the registry instance and guarded by a single
// mutex; reads never touch the network.
type AccountRegistry struct {
	mu        sync.RWMutex
	connected map[string]bool
	configs   map[string]core.AccountConfig
	directory []core.AccountSummary
	filePath  string
	logger    *zap.Logger
}

// New creates a new account registry persisting saved configurations
// to the given file path.
func New(filePath string, logger *zap.Logger) *AccountRegistry {
	return &AccountRegistry{
		connected: make(map[string]bool),
		configs:   make(map[string]core.AccountConfig),
		filePath:  filePath,
		logger:    logger,
	}
}

// LoadOnStartup reads the saved configuration file into memory. A
// missing file is a cold start, not an error.
func (r *AccountRegistry) LoadOnStartup() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Info("No saved account configurations found")
			return nil
		}
		return fmt.Errorf("failed to read account configurations: %w", err)
	}

	var configs []core.AccountConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return fmt.Errorf("failed to parse account configurations: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range configs {
		r.configs[cfg.Email] = cfg
	}

	r.logger.Info("Loaded saved account configurations", zap.Int("count", len(configs)))
	return nil
}

// RegisterConnecting atomically reserves the connection slot for the
// account. It returns false when the email is already reserved or
// connected, so a second add for the same email is refused before any
// dialing starts. A failed connect attempt must give the slot back
// with ReleaseConnecting.
func (r *AccountRegistry) RegisterConnecting(email string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected[email] {
		return false
	}
	r.connected[email] = true
	return true
}

// ReleaseConnecting drops the reservation taken by RegisterConnecting
// after a connect attempt fails.
func (r *AccountRegistry) ReleaseConnecting(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connected, email)
}

// MarkConnected idempotently marks the account connected, records the
// non-secret configuration for later reconnection, and appends a
// directory entry unless one already exists for the email.
func (r *AccountRegistry) MarkConnected(cfg core.AccountConfig, totalEmails int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connected[cfg.Email] = true
	r.configs[cfg.Email] = cfg

	if err := r.saveLocked(); err != nil {
		r.logger.Error("Failed to save account configurations",
			zap.String("email", cfg.Email), zap.Error(err))
	}

	for _, entry := range r.directory {
		if entry.Email == cfg.Email {
			return
		}
	}
	r.directory = append(r.directory, core.AccountSummary{
		ID:          strconv.FormatInt(time.Now().UnixNano(), 10),
		Email:       cfg.Email,
		Provider:    "IMAP",
		Status:      "connected",
		LastSync:    time.Now(),
		TotalEmails: totalEmails,
	})
}

// MarkDisconnected flips the account's status on explicit teardown.
// The directory entry stays present.
func (r *AccountRegistry) MarkDisconnected(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connected, email)
	for i := range r.directory {
		if r.directory[i].Email == email {
			r.directory[i].Status = "disconnected"
		}
	}
}

// ListConnected returns the tracked account directory.
func (r *AccountRegistry) ListConnected() []core.AccountSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.AccountSummary, len(r.directory))
	copy(out, r.directory)
	return out
}

// ListSavedConfigs returns the persisted non-secret configurations.
func (r *AccountRegistry) ListSavedConfigs() []core.AccountConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.AccountConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	return out
}

// SavedConfig looks up the persisted configuration for an email.
func (r *AccountRegistry) SavedConfig(email string) (core.AccountConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[email]
	return cfg, ok
}

// saveLocked writes the saved configurations to disk. Callers must
// hold the mutex.
func (r *AccountRegistry) saveLocked() error {
	configs := make([]core.AccountConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		configs = append(configs, cfg)
	}

	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account configurations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create accounts directory: %w", err)
	}
	if err := os.WriteFile(r.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write account configurations: %w", err)
	}
	return nil
}
