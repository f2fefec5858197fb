package roles

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SYSTEM_ADMIN", SystemAdmin},
		{"system_admin", SystemAdmin},
		{"  District_Admin  ", DistrictAdmin},
		{"lodge admin", LodgeAdmin},
		{"lodge-admin", LodgeAdmin},
		{"LODGE_MEMBER", Member}, // legacy free-text alias
		{"user", Member},
		{"member", Member},
		{"", Member},
		{"something weird", Member},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMax(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{Member, SystemAdmin, SystemAdmin},
		{SystemAdmin, Member, SystemAdmin},
		{LodgeAdmin, DistrictAdmin, DistrictAdmin},
		{"LODGE_MEMBER", "lodge_admin", LodgeAdmin},
		{Member, Member, Member},
	}

	for _, tt := range tests {
		if got := Max(tt.a, tt.b); got != tt.want {
			t.Errorf("Max(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOutranks(t *testing.T) {
	if !Outranks(SystemAdmin, DistrictAdmin) {
		t.Error("SYSTEM_ADMIN should outrank DISTRICT_ADMIN")
	}
	if Outranks(DistrictAdmin, DistrictAdmin) {
		t.Error("a role should not strictly outrank itself")
	}
	if !OutranksOrEqual(DistrictAdmin, DistrictAdmin) {
		t.Error("OutranksOrEqual should accept equal roles")
	}
	if OutranksOrEqual(LodgeAdmin, DistrictAdmin) {
		t.Error("LODGE_ADMIN should not outrank DISTRICT_ADMIN")
	}
}

func TestIsValid(t *testing.T) {
	for _, r := range []string{SystemAdmin, DistrictAdmin, LodgeAdmin, Member} {
		if !IsValid(r) {
			t.Errorf("IsValid(%q) = false, want true", r)
		}
	}
	if IsValid("lodge_admin") {
		t.Error("IsValid should require canonical upper-case form")
	}
}
