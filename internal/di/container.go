package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/adapters/elastic"
	"github.com/oneboxhq/onebox/internal/adapters/notify"
	"github.com/oneboxhq/onebox/internal/api"
	"github.com/oneboxhq/onebox/internal/config"
	"github.com/oneboxhq/onebox/internal/core"
	"github.com/oneboxhq/onebox/internal/factory"
	"github.com/oneboxhq/onebox/internal/imapsync"
	"github.com/oneboxhq/onebox/internal/logging"
	"github.com/oneboxhq/onebox/internal/registry"
	"github.com/oneboxhq/onebox/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register category cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.CategoryCache, error) {
		return f.CreateCategoryCache()
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Notifier {
		notifyCfg := cfg.GetNotify()
		return notify.NewWebhookNotifier(notifyCfg.SlackWebhookURL, notifyCfg.WebhookURL, logger)
	}); err != nil {
		return nil, err
	}

	// Register email store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *elastic.Store {
		storeCfg := cfg.GetStore()
		return elastic.NewStore(storeCfg.Endpoint, storeCfg.Index, storeCfg.Username, storeCfg.Password, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store *elastic.Store) core.EmailStore {
		return store
	}); err != nil {
		return nil, err
	}

	// Register categorizer service
	if err := container.Provide(func(
		llmClient core.LLMClient,
		cache core.CategoryCache,
		notifier core.Notifier,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.CategorizerService, error) {
		timeout, err := cfg.GetDuration("llm.timeout")
		if err != nil {
			return nil, err
		}
		return core.NewCategorizerService(llmClient, cache, notifier, logger, timeout), nil
	}); err != nil {
		return nil, err
	}

	// Register account registry
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *registry.AccountRegistry {
		return registry.New(cfg.GetString("accounts.file"), logger)
	}); err != nil {
		return nil, err
	}

	// Register connection manager
	if err := container.Provide(func(
		reg *registry.AccountRegistry,
		categorizer *core.CategorizerService,
		store core.EmailStore,
		cfg *config.Config,
		logger *zap.Logger,
	) (*imapsync.Manager, error) {
		heartbeat, err := cfg.GetDuration("imap.heartbeat_interval")
		if err != nil {
			return nil, err
		}
		backlogWindow := time.Duration(cfg.GetInt("imap.backlog_window_days")) * 24 * time.Hour
		return imapsync.NewManager(reg, categorizer, store, logger, backlogWindow, heartbeat), nil
	}); err != nil {
		return nil, err
	}

	// Register API server
	if err := container.Provide(func(
		manager *imapsync.Manager,
		reg *registry.AccountRegistry,
		store core.EmailStore,
		logger *zap.Logger,
	) *api.Server {
		return api.NewServer(manager, reg, store, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
