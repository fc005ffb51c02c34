package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-01", NewDate(2024, 1, 1), true},
		{"03/02/2024", NewDate(2024, 2, 3), true},
		{"2024-01-01T15:30:00Z", NewDate(2024, 1, 1), true},
		{"2024-01-01 08:00:00", NewDate(2024, 1, 1), true},
		{"  2024-12-31  ", NewDate(2024, 12, 31), true},
		{"", Date{}, false},
		{"not-a-date", Date{}, false},
		{"2024-13-01", Date{}, false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q) expected ok, got %v", i, tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q) expected error", i, tc.in)
		}
		if tc.ok && !got.Equal(tc.want.Time) {
			t.Fatalf("case %d (%q) got %v, want %v", i, tc.in, got, tc.want)
		}
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2024, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestContributionValidate(t *testing.T) {
	good := Contribution{
		Phone:        "0611",
		Amount:       Money{Cents: 10000},
		TransferDate: NewDate(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Contribution{
		{Phone: "0611", Amount: Money{Cents: 100}},                                                // zero date
		{Phone: "0611", Amount: Money{Cents: 0}, TransferDate: NewDate(2024, 1, 1)},               // zero amount
		{Phone: "0123456789012345", Amount: Money{Cents: 100}, TransferDate: NewDate(2024, 1, 1)}, // 16 chars
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
