package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CategorizerService is the core service for email categorization. It
// resolves every message to exactly one label from the closed category
// set: a cached result when available, the inference call when not,
// and the rule-based classifier when inference fails or answers
// outside the set.
type CategorizerService struct {
	llmClient    LLMClient
	cache        CategoryCache
	notifier     Notifier
	logger       *zap.Logger
	inferTimeout time.Duration
}

// NewCategorizerService creates a new categorizer service
func NewCategorizerService(
	llmClient LLMClient,
	cache CategoryCache,
	notifier Notifier,
	logger *zap.Logger,
	inferTimeout time.Duration,
) *CategorizerService {
	return &CategorizerService{
		llmClient:    llmClient,
		cache:        cache,
		notifier:     notifier,
		logger:       logger,
		inferTimeout: inferTimeout,
	}
}

// Classify resolves a subject/body pair to a category. It never fails
// outward: inference errors degrade to the rule-based fallback. When
// the resolved label is Interested and a notification context was
// supplied, both notification deliveries are fired without joining
// their outcomes into the result.
func (s *CategorizerService) Classify(ctx context.Context, subject, body string, nc *NotifyContext) Category {
	key := CacheKey(subject, body)

	if category, ok := s.cache.Get(key); ok {
		s.logger.Debug("Using cached categorization",
			zap.String("category", string(category)))
		s.maybeNotify(category, nc)
		return category
	}

	category := s.infer(ctx, subject, body)
	s.cache.Set(key, category)
	s.maybeNotify(category, nc)
	return category
}

// infer runs the primary inference call and validates its answer
// against the closed label set, falling back to the keyword rules on
// any failure.
func (s *CategorizerService) infer(ctx context.Context, subject, body string) Category {
	inferCtx := ctx
	if s.inferTimeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, s.inferTimeout)
		defer cancel()
	}

	raw, err := s.llmClient.CategorizeEmail(inferCtx, subject, body)
	if err != nil {
		s.logger.Error("AI categorization failed, using rule-based fallback",
			zap.Error(err))
		return RuleBasedCategory(subject, body)
	}

	category, ok := ParseCategory(raw)
	if !ok {
		s.logger.Warn("AI returned unknown category, using rule-based fallback",
			zap.String("response", raw))
		return RuleBasedCategory(subject, body)
	}

	s.logger.Debug("AI categorized email", zap.String("category", string(category)))
	return category
}

// maybeNotify fires both notification deliveries for the high-value
// category. The two deliveries run as independent tasks; failures are
// logged asynchronously and never propagate into the classification
// result.
func (s *CategorizerService) maybeNotify(category Category, nc *NotifyContext) {
	if category != CategoryInterested || nc == nil || s.notifier == nil {
		return
	}

	go func() {
		if err := s.notifier.Alert(context.Background(), nc); err != nil {
			s.logger.Error("Failed to send chat alert",
				zap.String("account", nc.Account), zap.Error(err))
		}
	}()
	go func() {
		if err := s.notifier.TriggerWebhook(context.Background(), nc); err != nil {
			s.logger.Error("Failed to trigger webhook",
				zap.String("account", nc.Account), zap.Error(err))
		}
	}()
}
