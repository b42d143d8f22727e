package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Category
		ok       bool
	}{
		{"interested", "Interested", CategoryInterested, true},
		{"action_required", "Action Required", CategoryActionRequired, true},
		{"legacy_action_required", "Action required", CategoryActionRequired, true},
		{"meeting_booked", "Meeting Booked", CategoryMeetingBooked, true},
		{"whitespace", "  Spam\n", CategorySpam, true},
		{"unknown", "Very Interested", "", false},
		{"lowercase", "interested", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCategory(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCacheKey(t *testing.T) {
	// Case and surrounding whitespace do not change the key
	assert.Equal(t, CacheKey("Hello", "World"), CacheKey("  hello  ", "world\n"))
	assert.NotEqual(t, CacheKey("hello", "world"), CacheKey("hello", "mars"))
}
