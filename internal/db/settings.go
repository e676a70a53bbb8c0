package db

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxReasonLength bounds stored report reasons, in runes.
	MaxReasonLength = 1024
	// DefaultReason replaces an empty report reason.
	DefaultReason = "no reason given"
)

func DefaultChatConfig(chatID int64, now time.Time) *ChatConfig {
	return &ChatConfig{
		ChatID:         chatID,
		WelcomeEnabled: true,
		CreatedAt:      now,
	}
}

// NormalizeReason trims reason, substitutes the placeholder for empty input and bounds its length.
func NormalizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return DefaultReason
	}
	return TruncateRunes(reason, MaxReasonLength)
}

// TruncateRunes cuts s to at most limit runes.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
