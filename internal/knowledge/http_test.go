package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPRetriever_Retrieve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.KnowledgeBaseIDs) != 2 || req.TopK != 3 {
			t.Fatalf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"passages": [
			{"text": "Refunds take 5-7 business days.", "source": "faq.md", "score": 0.91},
			{"text": "Refunds require an order id.", "source": "policy.md", "score": 0.84}
		]}`))
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, "key", 2*time.Second)
	got, err := r.Retrieve(context.Background(), []string{"kb-1", "kb-2"}, "refund status", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(got))
	}
	if got[0].Source != "faq.md" {
		t.Fatalf("unexpected first passage: %+v", got[0])
	}
}

func TestHTTPRetriever_NoKnowledgeBasesSkipsLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected without knowledge bases")
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, "", time.Second)
	got, err := r.Retrieve(context.Background(), nil, "anything", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no passages, got %v", got)
	}
}

func TestHTTPRetriever_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, "", time.Second)
	if _, err := r.Retrieve(context.Background(), []string{"kb-1"}, "q", 1); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
