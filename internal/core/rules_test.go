package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleBasedCategory(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		expected Category
	}{
		{"spam_unsubscribe", "Weekly deals", "Click here to unsubscribe from our list", CategorySpam},
		{"spam_promotion", "Big promotion inside", "", CategorySpam},
		{"out_of_office", "Re: proposal", "I am out of office until Monday", CategoryOutOfOffice},
		{"auto_reply", "Automatic reply: hello", "", CategoryOutOfOffice},
		{"meeting_zoom", "Sync tomorrow", "Here is the zoom link for our chat", CategoryMeetingBooked},
		{"meeting_calendar", "Calendar invite", "", CategoryMeetingBooked},
		{"action_urgent", "Urgent: server down", "Please fix now", CategoryActionRequired},
		{"action_verify", "", "Please verify your submission", CategoryActionRequired},
		{"interested_partnership", "Partnership proposal", "We would love to collaborate", CategoryInterested},
		{"interested_job", "About the job", "", CategoryInterested},
		{"not_interested_newsletter", "Monthly newsletter", "", CategoryNotInterested},
		{"not_interested_noreply", "", "This message was sent from a no-reply address", CategoryNotInterested},
		{"subject_urgency_fallthrough", "important notice", "nothing else here", CategoryActionRequired},
		{"default", "hello", "just saying hi", CategoryNotInterested},
		{"empty", "", "", CategoryNotInterested},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RuleBasedCategory(tc.subject, tc.body))
		})
	}
}

// Spam markers outrank every other group, and the remaining groups
// follow in their declared order.
func TestRuleBasedCategoryPriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		expected Category
	}{
		{"spam_beats_ooo", "vacation", "unsubscribe", CategorySpam},
		{"ooo_beats_meeting", "meeting", "out of office", CategoryOutOfOffice},
		{"meeting_beats_action", "urgent meeting", "", CategoryMeetingBooked},
		{"action_beats_interested", "urgent proposal", "", CategoryActionRequired},
		{"interested_beats_not_interested", "newsletter about a job", "", CategoryInterested},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RuleBasedCategory(tc.subject, tc.body))
		})
	}
}

func TestRuleBasedCategoryDeterministic(t *testing.T) {
	inputs := [][2]string{
		{"Partnership proposal", "let's work together"},
		{"", ""},
		{"URGENT", "respond asap"},
		{"random subject", "random body"},
	}
	for _, in := range inputs {
		first := RuleBasedCategory(in[0], in[1])
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, RuleBasedCategory(in[0], in[1]))
		}
	}
}

func TestRuleBasedCategoryAlwaysInClosedSet(t *testing.T) {
	inputs := [][2]string{
		{"", ""},
		{"asdfgh", "qwerty"},
		{"unsubscribe", "meeting"},
		{"IMPORTANT", ""},
		{"proposal", "noreply"},
	}
	for _, in := range inputs {
		got := RuleBasedCategory(in[0], in[1])
		_, ok := ParseCategory(string(got))
		assert.True(t, ok, "category %q not in closed set", got)
	}
}
