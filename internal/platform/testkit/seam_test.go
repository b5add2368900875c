package testkit

import (
	"strings"
	"testing"
)

var (
	newID   = func() string { return "generated" }
	maxSize = 10
)

func TestSwapRestoresAfterTest(t *testing.T) {
	t.Run("func", func(t *testing.T) {
		Swap(t, &newID, func() string { return "fixed" })
		if got := newID(); got != "fixed" {
			t.Fatalf("newID() = %q, want fixed", got)
		}
	})
	if got := newID(); got != "generated" {
		t.Fatalf("newID not restored, got %q", got)
	}

	t.Run("value", func(t *testing.T) {
		Swap(t, &maxSize, 2)
		if maxSize != 2 {
			t.Fatalf("maxSize = %d, want 2", maxSize)
		}
	})
	if maxSize != 10 {
		t.Fatalf("maxSize not restored, got %d", maxSize)
	}
}

func TestSwapNested(t *testing.T) {
	t.Run("outer", func(t *testing.T) {
		Swap(t, &newID, func() string { return "outer" })
		t.Run("inner", func(t *testing.T) {
			Swap(t, &newID, func() string { return "inner" })
			if !strings.HasPrefix(newID(), "inner") {
				t.Fatalf("inner swap not applied")
			}
		})
		if got := newID(); got != "outer" {
			t.Fatalf("inner cleanup restored %q, want outer", got)
		}
	})
}
