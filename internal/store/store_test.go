package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	wrapped := fmt.Errorf("insert grant: %w", ErrDuplicateKey)
	if !errors.Is(wrapped, ErrDuplicateKey) {
		t.Fatalf("expected wrapped error to match ErrDuplicateKey")
	}
	if errors.Is(wrapped, ErrTransient) || errors.Is(wrapped, ErrIdentityNotFound) {
		t.Errorf("duplicate key must not match other sentinels")
	}
}
