package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 25 {
		t.Fatalf("expected 25, got %d", got.MaxOpenConns)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got.PingTimeout)
	}

	// Explicit values must be preserved.
	got = PostgresPoolConfig{MaxOpenConns: 3}.withDefaults()
	if got.MaxOpenConns != 3 {
		t.Fatalf("expected 3, got %d", got.MaxOpenConns)
	}
}
