// Package roles is the single home for role values and precedence.
//
// Role comparisons happen in reconciliation merges, authorization decisions,
// and privilege transfers; all of them go through the total order defined
// here rather than comparing strings at the call site.
package roles

import "strings"

// Canonical role values, stored upper-case.
const (
	SystemAdmin   = "SYSTEM_ADMIN"
	DistrictAdmin = "DISTRICT_ADMIN"
	LodgeAdmin    = "LODGE_ADMIN"
	Member        = "MEMBER"
)

// rank defines the total order SYSTEM_ADMIN > DISTRICT_ADMIN > LODGE_ADMIN > MEMBER.
var rank = map[string]int{
	Member:        0,
	LodgeAdmin:    1,
	DistrictAdmin: 2,
	SystemAdmin:   3,
}

// aliases maps free-text role values seen in legacy records onto canonical
// roles. Anything unrecognized degrades to MEMBER rather than failing a
// whole batch run.
var aliases = map[string]string{
	"LODGE_MEMBER":     Member,
	"USER":             Member,
	"ADMIN":            LodgeAdmin,
	"DISTRICT_OFFICER": DistrictAdmin,
}

// IsValid reports whether role is one of the four canonical values.
func IsValid(role string) bool {
	_, ok := rank[role]
	return ok
}

// Normalize maps a raw role string (any case, legacy free text included)
// onto a canonical role. Unknown values normalize to MEMBER.
func Normalize(raw string) string {
	r := strings.ToUpper(strings.TrimSpace(raw))
	r = strings.NewReplacer(" ", "_", "-", "_").Replace(r)
	if IsValid(r) {
		return r
	}
	if mapped, ok := aliases[r]; ok {
		return mapped
	}
	return Member
}

// Rank returns the precedence of a canonical role; unknown roles rank as MEMBER.
func Rank(role string) int {
	if r, ok := rank[role]; ok {
		return r
	}
	return rank[Member]
}

// Max returns whichever of the two roles ranks higher, after normalizing both.
func Max(a, b string) string {
	na, nb := Normalize(a), Normalize(b)
	if Rank(nb) > Rank(na) {
		return nb
	}
	return na
}

// Outranks reports whether a strictly outranks b.
func Outranks(a, b string) bool {
	return Rank(Normalize(a)) > Rank(Normalize(b))
}

// OutranksOrEqual reports whether a ranks at least as high as b.
func OutranksOrEqual(a, b string) bool {
	return Rank(Normalize(a)) >= Rank(Normalize(b))
}
