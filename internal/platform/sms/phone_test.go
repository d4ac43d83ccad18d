package sms

import (
	"errors"
	"testing"
)

func TestNormalizeDRC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		err   bool
	}{
		{"local with leading zero", "0812345678", "+243812345678", false},
		{"international", "+243812345678", "+243812345678", false},
		{"country code without plus", "243812345678", "+243812345678", false},
		{"spaces and dashes", "081 234-56.78", "+243812345678", false},
		{"parentheses", "(081) 2345678", "+243812345678", false},
		{"too short", "08123456", "", true},
		{"too long", "081234567890", "", true},
		{"foreign number", "+33612345678", "", true},
		{"empty", "", "", true},
		{"leading zero after country code", "+2430812345678", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDRC(tt.input)
			if tt.err {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("expected ErrInvalidPhone, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMask(t *testing.T) {
	if got := Mask("+243812345678"); got != "+243*******78" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := Mask("081"); got != "****" {
		t.Errorf("expected full mask for short input, got %q", got)
	}
}
