package core

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Category is one label from the closed classification taxonomy.
type Category string

const (
	CategoryInterested     Category = "Interested"
	CategoryActionRequired Category = "Action Required"
	CategoryMeetingBooked  Category = "Meeting Booked"
	CategoryNotInterested  Category = "Not Interested"
	CategorySpam           Category = "Spam"
	CategoryOutOfOffice    Category = "Out of Office"
)

// Categories returns the closed set of valid labels.
func Categories() []Category {
	return []Category{
		CategoryInterested,
		CategoryActionRequired,
		CategoryMeetingBooked,
		CategoryNotInterested,
		CategorySpam,
		CategoryOutOfOffice,
	}
}

// ParseCategory matches free-form text against the closed label set.
// The legacy spelling "Action required" is folded into the canonical
// "Action Required" label so only one variant ever leaves the core.
func ParseCategory(s string) (Category, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "Action required" {
		return CategoryActionRequired, true
	}
	for _, c := range Categories() {
		if trimmed == string(c) {
			return c, true
		}
	}
	return "", false
}

// EmailMessage is a parsed message as it flows through classification
// and into the store.
type EmailMessage struct {
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	To       []string  `json:"to"`
	Date     time.Time `json:"date"`
	TextBody string    `json:"text_body"`
	Folder   string    `json:"folder"`
	Account  string    `json:"account"`
	Category Category  `json:"category"`
}

// NotifyContext is the subset of message fields forwarded to the
// notification sink when a message resolves to the high-value label.
type NotifyContext struct {
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Body    string    `json:"body"`
	Date    time.Time `json:"date"`
	Folder  string    `json:"folder"`
	Account string    `json:"account"`
}

// AccountSummary is a directory entry for a connected account.
type AccountSummary struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	LastSync    time.Time `json:"lastSync"`
	TotalEmails int       `json:"totalEmails"`
}

// AccountConfig is the non-secret subset of connection parameters
// persisted for reconnection. It must never carry a password.
type AccountConfig struct {
	Email  string `json:"email"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
}

// CacheKey derives the normalized classification cache key for a
// subject/body pair.
func CacheKey(subject, body string) string {
	content := strings.ToLower(strings.TrimSpace(subject)) + " " + strings.ToLower(strings.TrimSpace(body))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
