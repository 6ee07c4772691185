package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "Customer Deposits", false},
		{"padded", "  Cash  ", false},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", MaxAccountNameLength+1), true},
		{"nul byte", "cash\x00", true},
		{"newline", "cash\nfloat", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.input)
			if tt.wantErr != errors.Is(err, ErrInvalidAccountName) {
				t.Fatalf("ValidateAccountName(%q) = %v", tt.input, err)
			}
		})
	}
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	valid := []string{"1000", "2001.01", "loan:receivable", "cash_usd", "01J9ZQ4X7Y8A1B2C3D4E5F6G7H"}
	for _, code := range valid {
		if err := ValidateAccountCode(code); err != nil {
			t.Errorf("ValidateAccountCode(%q) = %v", code, err)
		}
	}

	invalid := []string{"", "10 00", "cash/usd", "caisse-é", strings.Repeat("9", MaxAccountCodeLength+1)}
	for _, code := range invalid {
		err := ValidateAccountCode(code)
		if !errors.Is(err, ErrInvalidAccountCode) {
			t.Errorf("ValidateAccountCode(%q) = %v, want ErrInvalidAccountCode", code, err)
		}
		if !IsValidation(err) {
			t.Errorf("ValidateAccountCode(%q) should be a validation error", code)
		}
	}
}

func TestValidateMetadata(t *testing.T) {
	t.Parallel()

	if err := ValidateMetadata(nil); err != nil {
		t.Fatalf("nil metadata: %v", err)
	}
	if err := ValidateMetadata(map[string]any{"channel": "mobile", "attempt": 2}); err != nil {
		t.Fatalf("valid metadata: %v", err)
	}

	if err := ValidateMetadata(map[string]any{" ": "x"}); !errors.Is(err, ErrInvalidMetadataKey) {
		t.Fatalf("blank key: got %v", err)
	}
	longKey := strings.Repeat("k", MaxMetadataKeyLength+1)
	if err := ValidateMetadata(map[string]any{longKey: 1}); !errors.Is(err, ErrInvalidMetadataKey) {
		t.Fatalf("long key: got %v", err)
	}

	oversized := map[string]any{"note": strings.Repeat("x", MaxMetadataSize)}
	err := ValidateMetadata(oversized)
	if !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("oversized: got %v", err)
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("oversized metadata kind = %s", KindOf(err))
	}

	if err := ValidateMetadata(map[string]any{"fn": func() {}}); !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("unencodable: got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: DefaultPageSize, -3: DefaultPageSize, 10: 10, MaxPageSize: MaxPageSize, MaxPageSize + 1: MaxPageSize}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
