package net_test

import (
	"context"
	"testing"

	pnet "tubelytics/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	base := context.Background()

	ctx := pnet.WithRequest(base, "req-1")
	if got := pnet.RequestID(ctx); got != "req-1" {
		t.Fatalf("RequestID got %q want %q", got, "req-1")
	}

	if ctx := pnet.WithRequest(base, ""); ctx != base {
		t.Fatalf("expected ctx unchanged when id empty")
	}
	if pnet.RequestID(base) != "" {
		t.Fatalf("expected empty getter on bare context")
	}
}
