// Package casing converts Go type names into the snake_case identifiers used as
// render-context attribute names.
package casing

import (
	"strings"
	"unicode"
)

// CamelToSnake converts a CamelCase identifier into snake_case.
//
// Runs of capitals are treated as one word, so an acronym followed by a word is
// split where the next word starts:
//
//	FAQPoint     -> faq_point
//	SiteSettings -> site_settings
//	HTMLField    -> html_field
func CamelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower)) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Plural returns the collection form of a snake_case name: a trailing "s",
// with no inflection (recruiters_branch -> recruiters_branchs).
func Plural(s string) string {
	if s == "" {
		return s
	}
	return s + "s"
}
