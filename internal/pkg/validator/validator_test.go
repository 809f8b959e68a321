package validator

import "testing"

type attributeForm struct {
	Code string `json:"code" validate:"required,referral_code"`
}

type actionForm struct {
	Slug string `json:"slug" validate:"required,action_slug"`
	Role string `json:"role" validate:"required,role"`
}

func TestReferralCodeValidation(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"ALICE1", true},
		{"abc123XYZ", true},
		{"1234567890123456", true},
		{"short", false},             // 5 chars
		{"12345678901234567", false}, // 17 chars
		{"has space1", false},
		{"dash-code1", false},
		{"", false},
	}
	for _, c := range cases {
		errs := Validate(attributeForm{Code: c.code})
		if (errs == nil) != c.ok {
			t.Fatalf("code %q: expected ok=%v, got errors %v", c.code, c.ok, errs)
		}
	}
}

func TestActionSlugAndRoleValidation(t *testing.T) {
	if errs := Validate(actionForm{Slug: "quest_complete", Role: "backer"}); errs != nil {
		t.Fatalf("valid form rejected: %v", errs)
	}
	if errs := Validate(actionForm{Slug: "Quest-Complete", Role: "backer"}); errs["slug"] == "" {
		t.Fatal("uppercase slug must be rejected")
	}
	if errs := Validate(actionForm{Slug: "quest", Role: "villain"}); errs["role"] == "" {
		t.Fatal("unknown role must be rejected")
	}
	if errs := Validate(actionForm{}); len(errs) != 2 {
		t.Fatalf("expected required errors for both fields, got %v", errs)
	}
}
