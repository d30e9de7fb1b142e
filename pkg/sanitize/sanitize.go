package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxPasses bounds decoding of entity-encoded markup such as "&lt;b&gt;".
const maxPasses = 3

// Text strips every HTML element from input and trims surrounding whitespace.
// Entities escaped by the policy are decoded again, so the result never grows
// longer than input and plain characters such as & or ' are stored as typed.
// Markup that only appears once entities are decoded is stripped as well.
func Text(input string) string {
	out := input
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

// OptionalText applies Text to a non-nil pointer, keeping nil as nil.
func OptionalText(input *string) *string {
	if input == nil {
		return nil
	}
	out := Text(*input)
	return &out
}
