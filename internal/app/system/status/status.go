// Package status defines identity status values.
package status

const (
	Active   = "active"
	Inactive = "inactive"
	Pending  = "pending"
)

// IsValid reports whether s is a recognized status value.
func IsValid(s string) bool {
	return s == Active || s == Inactive || s == Pending
}
