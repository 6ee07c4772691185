package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrMetadataTooLarge   = newSentinel(KindValidation, "metadata size exceeds limit")
	ErrInvalidMetadataKey = newSentinel(KindValidation, "invalid metadata key")
	ErrInvalidAccountCode = newSentinel(KindValidation, "invalid account code")
)

const (
	MaxAccountNameLength = 255
	MaxAccountCodeLength = 64
	MaxMetadataSize      = 10240
	MaxMetadataKeyLength = 128
	MaxPageSize          = 1000
	DefaultPageSize      = 100
)

// ValidateAccountName rejects blank names, names over MaxAccountNameLength and names
// carrying control characters.
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	case len(name) > MaxAccountNameLength:
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: contains control characters", ErrInvalidAccountName)
	}
	return nil
}

// ValidateAccountCode accepts chart-of-accounts style codes such as "1000", "2001.01" or
// "loan:receivable".
func ValidateAccountCode(code string) error {
	if code == "" || len(code) > MaxAccountCodeLength {
		return fmt.Errorf("%w: %q must be 1 to %d characters", ErrInvalidAccountCode, code, MaxAccountCodeLength)
	}
	for _, r := range code {
		if !isCodeRune(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidAccountCode, code, r)
		}
	}
	return nil
}

func isCodeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}

// ValidateMetadata checks caller supplied metadata before it is stored on a transaction
// and copied into audit payloads.
func ValidateMetadata(metadata map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	for k := range metadata {
		if strings.TrimSpace(k) == "" || len(k) > MaxMetadataKeyLength {
			return fmt.Errorf("%w: %q", ErrInvalidMetadataKey, k)
		}
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataTooLarge, err)
	}
	if len(data) > MaxMetadataSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMetadataTooLarge, len(data), MaxMetadataSize)
	}
	return nil
}

// ClampLimit normalizes a page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
