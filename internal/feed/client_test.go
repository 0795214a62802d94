package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_SendsQueryAndBearer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("pageSize") != "10" || q.Get("unreadOnly") != "true" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"1","title":"Hello","isRead":false}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/api/", ts.Client(),
		WithTokenSource(func() string { return "tok-1" }),
		WithFeedPath("notifications"),
	)
	payload, err := c.Fetch(context.Background(), DefaultQuery())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	items := Normalize(payload)
	if len(items) != 1 || items[0].Title != "Hello" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestFetch_NoTokenNoHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no auth header, got %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	if _, err := c.Fetch(context.Background(), Query{}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
}

func TestFetch_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	_, err := c.Fetch(context.Background(), DefaultQuery())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	_, err := c.Fetch(context.Background(), DefaultQuery())
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetch_InvalidJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, ts.Client())
	if _, err := c.Fetch(context.Background(), DefaultQuery()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(ts.URL, ts.Client())
	if _, err := c.Fetch(ctx, DefaultQuery()); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
