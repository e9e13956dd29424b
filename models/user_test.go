package models

import "testing"

func TestIsEvaluator(t *testing.T) {
	for _, role := range EvaluatorRoles() {
		if !IsEvaluator(role) {
			t.Errorf("IsEvaluator(%s) = false, want true", role)
		}
	}
	for _, role := range []string{RoleFaculty, RoleAdmin, "", "unknown"} {
		if IsEvaluator(role) {
			t.Errorf("IsEvaluator(%q) = true, want false", role)
		}
	}
}

func TestFullName(t *testing.T) {
	u := User{UserFname: "Asha", UserLname: "Rao"}
	if got := u.FullName(); got != "Asha Rao" {
		t.Errorf("FullName() = %q", got)
	}
	u.UserLname = ""
	if got := u.FullName(); got != "Asha" {
		t.Errorf("FullName() without last name = %q", got)
	}
}
