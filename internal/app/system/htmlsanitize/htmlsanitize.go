// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Governance free text (proposal titles and descriptions, join request
// messages, moderation reasons) is displayed by several clients, so it is
// stored as plain text with every tag removed.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy

	ugcOnce   sync.Once
	ugcPolicy *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func ugc() *bluemonday.Policy {
	ugcOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.RequireNoFollowOnLinks(false)
		ugcPolicy = p
	})
	return ugcPolicy
}

// PlainText strips every tag from s and trims surrounding whitespace.
// Entities bluemonday escapes on output are decoded again so that "a & b"
// round-trips unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := strict().Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(out))
}

// Sanitize keeps safe formatting markup and removes scripts, event handlers,
// and dangerous URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc().Sanitize(s)
}

// IsPlainText reports whether s contains no markup at all.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
