package service

import "strings"

// ContentValidator flags free text containing any restricted term.
type ContentValidator struct {
	terms []string
}

// NewContentValidator lowercases and trims the word list once. Blank entries are dropped.
func NewContentValidator(words []string) *ContentValidator {
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.ToLower(strings.TrimSpace(w)); t != "" {
			terms = append(terms, t)
		}
	}
	return &ContentValidator{terms: terms}
}

// ContainsRestricted reports whether text contains a restricted term, ignoring case.
func (v *ContentValidator) ContainsRestricted(text string) bool {
	if v == nil || len(v.terms) == 0 || strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, t := range v.terms {
		if strings.Contains(lowered, t) {
			return true
		}
	}
	return false
}
