// Package normalize provides input normalization helpers used by stores and
// handlers. Keeping these in one place means every write path stores the same
// canonical form (lowercase emails, trimmed names, lowercase statuses).
package normalize

import "strings"

// Email lowercases and trims an email address. Emails are stored and compared
// in this form everywhere; the unique index on identities depends on it.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status lowercases and trims a status value ("active", "inactive", "pending").
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
