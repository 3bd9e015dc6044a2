package input_test

import (
	"invitation/src-server/input"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	if got := input.Normalize("  가  "); got != "가" {
		t.Errorf("got %q", got)
	}
	if n := input.Len(strings.Repeat("\u1100\u1161", 3)); n != 3 {
		t.Error("jamo pairs should count as one character each, got", n)
	}
}

func TestValidate(t *testing.T) {
	type form struct {
		Name  string `validate:"required,max=5"`
		Email string `validate:"required,email"`
	}
	if err := input.Validate(&form{Name: "Kim", Email: "kim@example.com"}); err != nil {
		t.Error("valid form rejected:", err)
	}
	err := input.Validate(&form{Name: "Kimberly", Email: "nope"})
	if err == nil {
		t.Fatal("invalid form accepted")
	}
	if msg := err.Error(); !strings.Contains(msg, "name must be at most 5 characters") || !strings.Contains(msg, "email is invalid") {
		t.Error("unexpected message", msg)
	}
}
