// Package validate holds the predicates used to gate form submission.
package validate

import "strings"

// Rule reports whether a single text value is acceptable.
type Rule func(value string) bool

// Required passes when value contains at least one non-whitespace rune.
// Whitespace follows unicode.IsSpace, so NBSP and ideographic spaces do not
// count as content.
func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxLength returns a Rule that rejects values longer than n runes.
func MaxLength(n int) Rule {
	return func(value string) bool {
		return len([]rune(value)) <= n
	}
}

// Valid runs every rule against value and reports whether all of them pass.
// An empty rule set accepts everything.
func Valid(value string, rules ...Rule) bool {
	for _, rule := range rules {
		if !rule(value) {
			return false
		}
	}
	return true
}
