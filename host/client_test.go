package host

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/convoy/resilience"
	"github.com/kbukum/convoy/transport"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tc := transport.New(transport.Config{
		BaseURL: srv.URL,
		Retry:   resilience.RetryConfig{MaxRetries: 2, Delay: time.Millisecond},
	})
	return NewClient(tc).WithPollInterval(time.Millisecond), srv
}

func TestBridges(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs/42/bridges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]Bridge{
			{Name: "trigger-build", DownstreamUnitID: 7, DownstreamRunID: 99},
		})
	}))

	bridges, err := c.Bridges(context.Background(), 42)
	if err != nil {
		t.Fatalf("Bridges failed: %v", err)
	}
	if len(bridges) != 1 || bridges[0].DownstreamRunID != 99 {
		t.Errorf("unexpected bridges: %+v", bridges)
	}
}

func TestListJobs(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/units/7/runs/99/jobs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]Job{
			{ID: 10, Name: "run", HasArtifacts: true},
			{ID: 12, Name: "publish_success", HasArtifacts: true},
		})
	}))

	jobs, err := c.ListJobs(context.Background(), 7, 99)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestStartUnit(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/units/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		if req["name"] != "builder" || req["ref"] != "v1.2.3" {
			t.Errorf("unexpected payload: %v", req)
		}
		_ = json.NewEncoder(w).Encode(UnitHandle{UnitID: 7, RunID: 99})
	}))

	handle, err := c.StartUnit(context.Background(), "builder", "v1.2.3", map[string]string{"RUN_ID": "r-1"})
	if err != nil {
		t.Fatalf("StartUnit failed: %v", err)
	}
	if handle.UnitID != 7 || handle.RunID != 99 {
		t.Errorf("unexpected handle: %+v", handle)
	}
}

func TestAwaitUnitPollsUntilTerminal(t *testing.T) {
	var polls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := StatusRunning
		if atomic.AddInt32(&polls, 1) >= 3 {
			status = StatusSuccess
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
	}))

	status, err := c.AwaitUnit(context.Background(), UnitHandle{UnitID: 7, RunID: 99})
	if err != nil {
		t.Fatalf("AwaitUnit failed: %v", err)
	}
	if status != StatusSuccess {
		t.Errorf("expected success, got %s", status)
	}
	if n := atomic.LoadInt32(&polls); n < 3 {
		t.Errorf("expected at least 3 polls, got %d", n)
	}
}

func TestAwaitUnitContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": string(StatusRunning)})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.AwaitUnit(ctx, UnitHandle{UnitID: 7, RunID: 99})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestDownloadArtifacts(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/units/7/jobs/12/artifacts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("zip-bytes"))
	}))

	body, err := c.DownloadArtifacts(context.Background(), 7, 12)
	if err != nil {
		t.Fatalf("DownloadArtifacts failed: %v", err)
	}
	if string(body) != "zip-bytes" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestUploadPackage(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tc := transport.New(transport.Config{
		BaseURL: srv.URL,
		Retry:   resilience.RetryConfig{MaxRetries: 1, Delay: time.Millisecond},
	})
	u := NewUploader(tc)

	err := u.UploadPackage(context.Background(), "42", "releases", "r-1", "run-r-1.zip", []byte("bundle"))
	if err != nil {
		t.Fatalf("UploadPackage failed: %v", err)
	}
	want := "/stores/42/packages/generic/releases/r-1/run-r-1.zip"
	if gotPath != want {
		t.Errorf("expected path %s, got %s", want, gotPath)
	}
	if string(gotBody) != "bundle" {
		t.Errorf("expected bundle body, got %s", gotBody)
	}
}

func TestUnitStatusTerminal(t *testing.T) {
	tests := []struct {
		status UnitStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusSuccess, true},
		{StatusFailed, true},
		{StatusCanceled, true},
	}
	for _, tc := range tests {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("Terminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
