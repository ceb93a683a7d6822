package ident

import (
	"errors"
	"testing"

	"pdfinsight/internal/model"
)

func TestNewLengthAndCharset(t *testing.T) {
	for _, length := range []int{4, 8, 12, 16} {
		id, err := New(length)
		if err != nil {
			t.Fatalf("New(%d): %v", length, err)
		}
		if len(id) != length {
			t.Fatalf("New(%d) returned %q with length %d", length, id, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
				t.Fatalf("New(%d) returned non-hex character %q in %q", length, c, id)
			}
		}
	}
}

func TestNewDefaultsOnNonPositiveLength(t *testing.T) {
	id, err := New(0)
	if err != nil {
		t.Fatalf("New(0): %v", err)
	}
	if len(id) != DefaultLength {
		t.Fatalf("expected default length %d, got %d", DefaultLength, len(id))
	}
}

func TestNewCheckedRetriesOnCollision(t *testing.T) {
	calls := 0
	id, err := NewChecked(8, func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("NewChecked: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}
	if calls != 3 {
		t.Fatalf("expected 3 collision checks, got %d", calls)
	}
}

func TestNewCheckedExhaustsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := NewChecked(8, func(string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, model.ErrNamingExhausted) {
		t.Fatalf("expected ErrNamingExhausted, got %v", err)
	}
	if calls != MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxAttempts, calls)
	}
}

func TestNewCheckedPropagatesPredicateError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewChecked(8, func(string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected predicate error, got %v", err)
	}
}
