package inmem

import (
	"errors"
	"testing"
)

func TestLocalClient(t *testing.T) {
	c := NewLocalClient()

	t.Run("Get on a missing key", func(t *testing.T) {
		if _, err := c.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Put then Get", func(t *testing.T) {
		if err := c.Put("k", []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		v, err := c.Get("k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(v) != "v" {
			t.Errorf("value mismatch: got %q, want %q", v, "v")
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		v, _ := c.Get("k")
		v[0] = 'x'
		again, _ := c.Get("k")
		if string(again) != "v" {
			t.Errorf("stored value was mutated: %q", again)
		}
	})

	t.Run("Delete removes the key", func(t *testing.T) {
		if err := c.Delete("k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := c.Get("k"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete of a missing key is not an error", func(t *testing.T) {
		if err := c.Delete("never-there"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	})
}
