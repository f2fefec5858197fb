// Package sanitize strips markup from user-supplied free-text fields.
//
// Identity names, addresses, and lodge names are stored as plain text and
// rendered by collaborating surfaces we don't control, so markup is removed
// at the write path rather than trusted to every reader.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from a free-text field, leaving plain text.
func Text(s string) string {
	return strict.Sanitize(s)
}
