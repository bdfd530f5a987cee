package validation

import "testing"

func TestValidPhone(t *testing.T) {
	valid := []string{
		"9876543210",
		"+91 98765 43210",
		"(022) 4000-1234",
		"98765.43210",
		"+919876543210123",
	}
	for _, number := range valid {
		if !ValidPhone(number) {
			t.Fatalf("expected %q to be valid", number)
		}
	}

	invalid := []string{
		"",
		"12345",
		"123456789",
		"abcdefghij",
		"98765x43210",
		"+9198765432101234",
	}
	for _, number := range invalid {
		if ValidPhone(number) {
			t.Fatalf("expected %q to be invalid", number)
		}
	}
}

func TestStructPhoneRule(t *testing.T) {
	v := New()

	type form struct {
		Phone string `validate:"required,phone"`
	}

	if err := v.Struct(form{Phone: "9876543210"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := v.Struct(form{Phone: "12345"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	errs := v.ValidationErrors(err)
	if len(errs) != 1 || errs[0].Tag() != "phone" {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestStructDateAndClockRules(t *testing.T) {
	v := New()

	type form struct {
		Date string `validate:"omitempty,date"`
		Time string `validate:"omitempty,clock"`
	}

	if err := v.Struct(form{Date: "2026-03-15", Time: "14:30"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Struct(form{Date: "15-03-2026"}); err == nil {
		t.Fatalf("expected date validation error")
	}
	if err := v.Struct(form{Time: "25:00"}); err == nil {
		t.Fatalf("expected clock validation error")
	}
}
