package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"afterschool/internal/eventbus"
	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeWatcher struct {
	mu      sync.Mutex
	states  []watcher.AppState
	pollErr error
	polls   int
}

func (f *fakeWatcher) AppStateChanged(next watcher.AppState) {
	f.mu.Lock()
	f.states = append(f.states, next)
	f.mu.Unlock()
}

func (f *fakeWatcher) PollNow(context.Context) (watcher.CycleReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return watcher.CycleReport{ID: "c-err"}, f.pollErr
	}
	return watcher.CycleReport{ID: "c-1", Items: 2, Presented: 1}, nil
}

func (f *fakeWatcher) Status() watcher.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := watcher.Status{Phase: watcher.PhasePolling, Enabled: true}
	if n := len(f.states); n > 0 {
		st.AppState = f.states[n-1]
	}
	return st
}

type fakeEnabler struct {
	last *bool
	set  bool
}

func (f *fakeEnabler) SetOverride(v *bool) bool {
	f.last, f.set = v, true
	if v == nil {
		return true
	}
	return *v
}

func newTestServer(t *testing.T, token string) (*Server, *fakeWatcher, *fakeEnabler, *eventbus.Ring) {
	t.Helper()
	w, e, ring := &fakeWatcher{}, &fakeEnabler{}, eventbus.NewRing(10)
	s := New(Config{Token: token}, Deps{Watcher: w, Enabler: e, Events: ring, Log: logx.Nop()})
	return s, w, e, ring
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Reader
	if body != "" {
		buf = bytes.NewReader([]byte(body))
	} else {
		buf = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLifecycleEndpoint(t *testing.T) {
	t.Parallel()
	s, w, _, _ := newTestServer(t, "")

	rec := do(t, s.Handler(), http.MethodPost, "/v1/lifecycle", `{"state":"background"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var st watcher.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.AppState != watcher.AppBackground || len(w.states) != 1 {
		t.Fatalf("unexpected status %+v, states %v", st, w.states)
	}

	for _, body := range []string{`{"state":"sleeping"}`, `{}`, `not json`} {
		if rec := do(t, s.Handler(), http.MethodPost, "/v1/lifecycle", body, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if len(w.states) != 1 {
		t.Fatalf("invalid requests reached the watcher: %v", w.states)
	}
}

func TestEnabledEndpoint(t *testing.T) {
	t.Parallel()
	s, _, e, _ := newTestServer(t, "")

	rec := do(t, s.Handler(), http.MethodPost, "/v1/enabled", `{"enabled":false}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if e.last == nil || *e.last {
		t.Fatalf("override not forwarded: %v", e.last)
	}
	var resp struct {
		Enabled bool `json:"enabled"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Enabled {
		t.Fatal("expected effective enabled=false")
	}

	rec = do(t, s.Handler(), http.MethodPost, "/v1/enabled", `{"enabled":null}`, "")
	if rec.Code != http.StatusOK || e.last != nil {
		t.Fatalf("null should clear the override: %d %v", rec.Code, e.last)
	}
}

func TestPollEndpoint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusOK},
		{name: "disabled", err: watcher.ErrDisabled, want: http.StatusConflict},
		{name: "fetch failed", err: &watcher.FetchError{Err: errors.New("timeout")}, want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, w, _, _ := newTestServer(t, "")
			w.pollErr = tt.err
			rec := do(t, s.Handler(), http.MethodPost, "/v1/poll", "", "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if w.polls != 1 {
				t.Fatalf("polls = %d, want 1", w.polls)
			}
		})
	}
}

func TestEventsEndpoint(t *testing.T) {
	t.Parallel()
	s, _, _, ring := newTestServer(t, "")
	for _, k := range []string{"a", "b", "c"} {
		ring.Add(eventbus.Event{Kind: k, At: time.Now()})
	}

	rec := do(t, s.Handler(), http.MethodGet, "/v1/events?limit=2", "", "")
	var resp struct {
		Events []eventbus.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].Kind != "b" || resp.Events[1].Kind != "c" {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/v1/events?limit=x", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestServer(t, "s3cret")

	if rec := do(t, s.Handler(), http.MethodGet, "/v1/status", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/v1/status", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/v1/status", "", "s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/v1/health", "", "s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz must not require auth: status = %d", rec.Code)
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	t.Parallel()
	s := New(Config{Addr: "127.0.0.1:0"}, Deps{Watcher: &fakeWatcher{}, Log: logx.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPprofMountedBehindAuth(t *testing.T) {
	t.Parallel()
	s := New(Config{Token: "tok", Pprof: true}, Deps{Watcher: &fakeWatcher{}, Log: logx.Nop()})
	if rec := do(t, s.Handler(), http.MethodGet, "/debug/pprof/goroutine?debug=1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	rec := do(t, s.Handler(), http.MethodGet, "/debug/pprof/goroutine?debug=1", "", "tok")
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("goroutine")) {
		t.Fatalf("status = %d, body = %.80s", rec.Code, rec.Body.String())
	}

	off, _, _, _ := newTestServer(t, "")
	if rec := do(t, off.Handler(), http.MethodGet, "/debug/pprof/", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled: status = %d", rec.Code)
	}
}
