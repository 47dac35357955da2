package util

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy     *bluemonday.Policy
	strictPolicyOnce sync.Once
)

func policy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
		strictPolicy.AddSpaceWhenStrippingTag(true)
	})
	return strictPolicy
}

// PlainText strips all markup from s, decodes entities and collapses
// whitespace. Room descriptions are free text from the service and are
// printed to a terminal.
func PlainText(s string) string {
	stripped := html.UnescapeString(policy().Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
