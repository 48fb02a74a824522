package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

func TestBackendClient_Recommend(t *testing.T) {
	var got models.RecommendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rag-recommend" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"generated_description":"Try these","retrieved_products":[{"uniq_id":"p1","title":"Oak Table","price":"$120"}]}`))
	}))
	defer srv.Close()

	client := NewBackendClient(srv.URL+"/", time.Second)
	resp, err := client.Recommend(context.Background(), models.RecommendRequest{Text: "oak table", SessionID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Text != "oak table" || got.SessionID != "abc" {
		t.Errorf("unexpected request body: %+v", got)
	}
	if resp.GeneratedDescription != "Try these" {
		t.Errorf("unexpected description %q", resp.GeneratedDescription)
	}
	if len(resp.RetrievedProducts) != 1 || resp.RetrievedProducts[0].Title != "Oak Table" {
		t.Errorf("unexpected products: %+v", resp.RetrievedProducts)
	}
}

func TestBackendClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Analytics data not available."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewBackendClient(srv.URL, time.Second)
	_, err := client.ListProducts(context.Background())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Path != "/analytics" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestBackendClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewBackendClient(url, time.Second)
	if _, err := client.ListProducts(context.Background()); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestBackendClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewBackendClient(srv.URL, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ListProducts(ctx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("cancellation took too long: %s", time.Since(start))
	}
}

func TestBackendClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := NewBackendClient(srv.URL, time.Second)
	if _, err := client.Recommend(context.Background(), models.RecommendRequest{Text: "x"}); err == nil {
		t.Fatal("expected decode error")
	}
}
