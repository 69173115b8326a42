package routing

import (
	"errors"
	"strings"
	"testing"
)

func TestIDDeterministicAndCaseInsensitive(t *testing.T) {
	addr := strings.Repeat("ab3", 17) + "cd"
	id1, err := ID(addr)
	if err != nil {
		t.Fatalf("routing id failed: %v", err)
	}
	id2, err := ID(strings.ToUpper(addr))
	if err != nil {
		t.Fatalf("uppercase routing id failed: %v", err)
	}
	if id1 != id2 {
		t.Fatal("routing id must be case-insensitive in its input")
	}
	if len(id1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(id1))
	}
	for _, c := range id1 {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("routing id contains non-hex char %q", c)
		}
	}
}

func TestIDDistinctInputs(t *testing.T) {
	a, err := ID("aaaa")
	if err != nil {
		t.Fatalf("routing id failed: %v", err)
	}
	b, err := ID("aaab")
	if err != nil {
		t.Fatalf("routing id failed: %v", err)
	}
	if a == b {
		t.Fatal("different addresses hashed to the same routing id")
	}
}

func TestIDEmpty(t *testing.T) {
	if _, err := ID("  "); !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
}
