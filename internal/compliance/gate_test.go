package compliance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voiceagent-platform/internal/agents"
)

type stubVerifier struct {
	status DNDStatus
	err    error
	calls  int
}

func (v *stubVerifier) CheckDND(ctx context.Context, phone string) (DNDStatus, error) {
	v.calls++
	return v.status, v.err
}

func TestGate_BlocksDNDNumbers(t *testing.T) {
	v := &stubVerifier{status: DNDStatus{IsDND: true, Status: "registered"}}
	g := NewGate(v)

	d, err := g.Check(context.Background(), agents.ComplianceConfig{CheckDND: true}, "+919999999999")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Blocked {
		t.Fatalf("expected blocked decision")
	}
	if d.Reason == "" {
		t.Fatalf("expected human-readable reason")
	}
}

func TestGate_AllowsCleanNumbers(t *testing.T) {
	v := &stubVerifier{status: DNDStatus{IsDND: false}}
	g := NewGate(v)

	d, err := g.Check(context.Background(), agents.ComplianceConfig{CheckDND: true}, "+15551234567")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Blocked {
		t.Fatalf("expected pass, got blocked: %q", d.Reason)
	}
}

func TestGate_SkipsDisabledChecksEntirely(t *testing.T) {
	v := &stubVerifier{status: DNDStatus{IsDND: true}}
	g := NewGate(v)

	d, err := g.Check(context.Background(), agents.ComplianceConfig{CheckDND: false}, "+15551234567")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Blocked {
		t.Fatalf("expected pass when check disabled")
	}
	if v.calls != 0 {
		t.Fatalf("expected no verifier calls for disabled check, got %d", v.calls)
	}
}

func TestGate_VerifierOutageIsNotABlock(t *testing.T) {
	v := &stubVerifier{err: errors.New("registry down")}
	g := NewGate(v)

	_, err := g.Check(context.Background(), agents.ComplianceConfig{CheckDND: true}, "+15551234567")
	if !errors.Is(err, ErrVerifierUnavailable) {
		t.Fatalf("expected ErrVerifierUnavailable, got %v", err)
	}
	// Initial attempt plus one retry.
	if v.calls != 2 {
		t.Fatalf("expected 2 lookup attempts, got %d", v.calls)
	}
}

func TestHTTPVerifier_ParsesRegistryResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("phone"); got != "+15551234567" {
			t.Fatalf("unexpected phone param %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_dnd": true, "status": "registered"}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "key", 2*time.Second)
	status, err := v.CheckDND(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !status.IsDND || status.Status != "registered" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestHTTPVerifier_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "", 2*time.Second)
	if _, err := v.CheckDND(context.Background(), "+15551234567"); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
