// Package encoder rewrites raw message text into the canonical markup stored
// on timelines: mentions become @<user:name> and web links become
// <url:https://...>.
package encoder

import (
	"regexp"
	"strings"
)

var (
	mentionRegex = regexp.MustCompile(`@(\w+)`)
	urlRegex     = regexp.MustCompile(`(?i)\b(www\.[\w\-.]+\.[a-z]{2,}|https?://[\w\-.]+\.[a-z]{2,})`)
)

// Markup is the default content encoder.
type Markup struct{}

func (Markup) Encode(content string) string {
	content = mentionRegex.ReplaceAllString(content, "@<user:$1>")
	return urlRegex.ReplaceAllStringFunc(content, func(url string) string {
		if !strings.HasPrefix(strings.ToLower(url), "http") {
			url = "https://" + url
		}
		return "<url:" + url + ">"
	})
}

// Plain leaves content untouched.
type Plain struct{}

func (Plain) Encode(content string) string { return content }
