package asset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"testing/fstest"
)

func testServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/b.svg":
			w.Write([]byte("<svg/>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadFallsThroughAndCaches(t *testing.T) {
	var hits int32
	srv := testServer(t, &hits)
	l := NewLoader(&HTTPFetcher{}, srv.URL, nil, nil)

	got, err := l.Load(context.Background(), []string{"a.svg", "b.svg"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Markup != "<svg/>" {
		t.Errorf("expected <svg/>, got %q", got.Markup)
	}
	if got.URL != srv.URL+"/b.svg" {
		t.Errorf("expected b.svg to win, got %q", got.URL)
	}
	if hits != 2 {
		t.Fatalf("expected 2 fetches on first load, got %d", hits)
	}

	again, err := l.Load(context.Background(), []string{"a.svg", "b.svg"})
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !again.Cached || again.Markup != "<svg/>" {
		t.Errorf("expected cached <svg/>, got %+v", again)
	}
	if hits != 2 {
		t.Errorf("expected zero fetches on second load, got %d extra", hits-2)
	}
}

func TestLoadAllFailIsUnavailableAndUncached(t *testing.T) {
	var hits int32
	srv := testServer(t, &hits)
	l := NewLoader(&HTTPFetcher{}, srv.URL, nil, nil)

	_, err := l.Load(context.Background(), []string{"a.svg", "c.svg"})
	if !errors.Is(err, ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("expected wrapped 404 StatusError, got %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", l.Len())
	}

	// Repeated failures surface the same way and re-fetch.
	if _, err := l.Load(context.Background(), []string{"a.svg", "c.svg"}); !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("expected ErrAssetUnavailable on retry, got %v", err)
	}
	if hits != 4 {
		t.Errorf("expected failed candidates to be retried, got %d fetches", hits)
	}
}

func TestLoadEmptyCandidates(t *testing.T) {
	l := NewLoader(&DirFetcher{FS: fstest.MapFS{}}, "", nil, nil)
	if _, err := l.Load(context.Background(), nil); !errors.Is(err, ErrAssetUnavailable) {
		t.Errorf("expected ErrAssetUnavailable, got %v", err)
	}
}

func TestLoadCancelledContext(t *testing.T) {
	l := NewLoader(&DirFetcher{FS: fstest.MapFS{"a.svg": {Data: []byte("<svg/>")}}}, "", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, []string{"a.svg"})
	if !errors.Is(err, ErrAssetUnavailable) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected unavailable + canceled, got %v", err)
	}
}

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images", "usa.svg"), []byte("<svg id='usa'/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(NewDirFetcher(dir), "", nil, nil)
	got, err := l.Load(context.Background(), []string{"images/usa-maps/usa.svg", "/images/usa.svg"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Markup != "<svg id='usa'/>" {
		t.Errorf("unexpected markup %q", got.Markup)
	}
}

func TestResolve(t *testing.T) {
	l := NewLoader(nil, "https://cdn.example.com/assets/", nil, nil)
	if got := l.Resolve("/images/usa.svg"); got != "https://cdn.example.com/assets/images/usa.svg" {
		t.Errorf("unexpected resolve %q", got)
	}
	if got := l.Resolve("https://other.example.com/x.svg"); got != "https://other.example.com/x.svg" {
		t.Errorf("absolute candidates should pass through, got %q", got)
	}
}

func TestNilRateLimiterDoesNotBlock(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl != nil {
		t.Fatal("expected nil limiter for rps <= 0")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
