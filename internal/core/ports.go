package core

import (
	"context"
)

// LLMClient defines the interface for the primary text-inference call.
type LLMClient interface {
	// CategorizeEmail asks the model for a label from the closed
	// category set and returns its raw text response.
	CategorizeEmail(ctx context.Context, subject, body string) (string, error)
}

// CategoryCache is a bounded, insertion-ordered mapping from
// normalized message content to a resolved category. When the cache is
// at capacity, Set evicts the oldest-inserted entry first.
type CategoryCache interface {
	// Get retrieves a cached category for a content key
	Get(key string) (Category, bool)

	// Set stores a category for a content key, evicting if full
	Set(key string, category Category)

	// Len reports the number of cached entries
	Len() int
}

// EmailStore is the external index that durably stores classified
// messages and answers category queries.
type EmailStore interface {
	// Store writes a classified message tagged with folder, account
	// identity, and resolved category
	Store(ctx context.Context, msg *EmailMessage, folder, account string, category Category) error

	// CountForAccount reports the number of stored messages for an account
	CountForAccount(ctx context.Context, account string) (int, error)

	// Search returns stored messages matching category, and optionally
	// account and folder
	Search(ctx context.Context, category, account, folder string) ([]EmailMessage, error)
}

// Notifier delivers high-value message alerts to downstream channels.
// Both deliveries fire only for the Interested category and
// independently of each other.
type Notifier interface {
	// Alert posts a chat alert for an interesting message
	Alert(ctx context.Context, nc *NotifyContext) error

	// TriggerWebhook posts the full notification payload to the
	// configured webhook endpoint
	TriggerWebhook(ctx context.Context, nc *NotifyContext) error
}
