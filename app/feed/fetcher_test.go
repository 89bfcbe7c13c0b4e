package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetcher_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "Crowd List test@example.com" {
			t.Errorf("Expected User-Agent 'Crowd List test@example.com', got '%s'", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, testAtomFeed)
	}))
	defer server.Close()

	fetcher := NewFetcher(NewClient(server.Client(), "Crowd List test@example.com", 0, 0), NewParser())

	entries, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "not a feed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html><body>Your request has been blocked</body></html>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			fetcher := NewFetcher(NewClient(server.Client(), "Crowd List test@example.com", 0, 0), NewParser())

			entries, err := fetcher.Run(context.Background(), server.URL)

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Expected FetchError, got: %v", err)
			}
			if fetchErr.URL != server.URL {
				t.Errorf("Expected error URL '%s', got '%s'", server.URL, fetchErr.URL)
			}
			if entries != nil {
				t.Errorf("Expected no entries, got %d", len(entries))
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Crowd List test@example.com", 0, 50*time.Millisecond)

	start := time.Now()
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Error("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected request to time out quickly, took %v", elapsed)
	}
}

func TestClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	// burst of 1 at 10 req/s: three requests need at least two waits
	client := NewClient(server.Client(), "Crowd List test@example.com", 1, 0)
	client.limiter.SetLimit(10)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Expected limiter to space requests, took %v", elapsed)
	}
}

func TestClient_CanceledContext(t *testing.T) {
	client := NewClient(nil, "Crowd List test@example.com", 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, "http://127.0.0.1:1/"); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestClient_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 17))
	}))
	defer server.Close()

	client := NewClient(server.Client(), "Crowd List test@example.com", 0, 0)
	client.maxBody = 16

	if _, err := client.Get(context.Background(), server.URL); !errors.Is(err, ErrResponseTooLarge) {
		t.Errorf("Expected ErrResponseTooLarge, got: %v", err)
	}

	client.maxBody = 17
	data, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected body at the limit to be accepted, got: %v", err)
	}
	if len(data) != 17 {
		t.Errorf("Expected 17 bytes, got %d", len(data))
	}
}
