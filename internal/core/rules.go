package core

import (
	"strings"
)

// Keyword groups for the rule-based classifier, evaluated in strict
// priority order. The first matching group wins.
var (
	spamKeywords = []string{
		"unsubscribe", "opt out", "no longer wish", "remove from list",
		"marketing", "promotion", "discount", "sale", "limited time",
	}
	outOfOfficeKeywords = []string{
		"out of office", "vacation", "away", "unavailable",
		"auto-reply", "automatic reply",
	}
	meetingKeywords = []string{
		"meeting", "call", "appointment", "schedule", "calendar",
		"zoom", "teams", "google meet", "conference",
	}
	actionKeywords = []string{
		"action required", "please respond", "reply needed", "urgent",
		"asap", "deadline", "complete", "verify",
	}
	interestedKeywords = []string{
		"proposal", "opportunity", "collaboration", "partnership",
		"business", "work", "project", "job", "interview",
	}
	notInterestedKeywords = []string{
		"newsletter", "update", "notification", "system", "automated",
		"no-reply", "noreply",
	}
)

// RuleBasedCategory classifies a message using ordered keyword rules.
// It is the deterministic backstop for the inference call: total,
// network-free, and independent of any cache or inference state.
func RuleBasedCategory(subject, body string) Category {
	subjectLower := strings.ToLower(subject)
	bodyLower := strings.ToLower(body)
	combined := subjectLower + " " + bodyLower

	if containsAny(combined, spamKeywords) {
		return CategorySpam
	}
	if containsAny(combined, outOfOfficeKeywords) {
		return CategoryOutOfOffice
	}
	if containsAny(combined, meetingKeywords) {
		return CategoryMeetingBooked
	}
	if containsAny(combined, actionKeywords) {
		return CategoryActionRequired
	}
	if containsAny(combined, interestedKeywords) {
		return CategoryInterested
	}
	if containsAny(combined, notInterestedKeywords) {
		return CategoryNotInterested
	}

	// Urgency in the subject alone still warrants a response
	if strings.Contains(subjectLower, "important") ||
		strings.Contains(subjectLower, "urgent") ||
		strings.Contains(subjectLower, "asap") {
		return CategoryActionRequired
	}

	return CategoryNotInterested
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
