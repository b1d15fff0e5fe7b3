package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// fakeRedash simulates the create → refresh → poll → results → delete
// protocol and counts every call.
type fakeRedash struct {
	mu           sync.Mutex
	jobStatuses  []int // consumed one per poll; last value repeats
	pollCount    int
	createCount  int
	refreshCount int
	deleteCount  int
	server       *httptest.Server
}

func newFakeRedash(jobStatuses ...int) *fakeRedash {
	f := &fakeRedash{jobStatuses: jobStatuses}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/queries/101/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		f.refreshCount++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"job": map[string]interface{}{"id": "job-1", "status": 1}})
	})
	mux.HandleFunc("/api/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		idx := f.pollCount
		if idx >= len(f.jobStatuses) {
			idx = len(f.jobStatuses) - 1
		}
		status := f.jobStatuses[idx]
		f.pollCount++
		f.mu.Unlock()
		job := map[string]interface{}{"id": "job-1", "status": status}
		if status == redash.JobStatusFailed {
			job["error"] = "table does not exist"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"job": job})
	})
	mux.HandleFunc("/api/queries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		f.createCount++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 101, "name": "Ad-hoc"})
	})
	mux.HandleFunc("/api/queries/101/results", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"query_result": map[string]interface{}{
				"id": 7,
				"data": map[string]interface{}{
					"columns": []map[string]string{{"name": "application_id"}},
					"rows":    []map[string]interface{}{{"application_id": "APP-1"}, {"application_id": "APP-2"}},
				},
			},
		})
	})
	mux.HandleFunc("/api/queries/101", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		f.deleteCount++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "{}")
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeRedash) counts() (create, refresh, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCount, f.refreshCount, f.deleteCount
}

func testExecutor(f *fakeRedash, cacheTTL time.Duration) *Executor {
	client := redash.NewClient(f.server.URL, "test-key")
	policy := PollPolicy{Interval: 5 * time.Millisecond, MaxWait: 150 * time.Millisecond}
	return New(client, policy, cacheTTL, log.New(io.Discard, "", 0))
}

func TestExecuteSuccess(t *testing.T) {
	f := newFakeRedash(redash.JobStatusPending, redash.JobStatusStarted, redash.JobStatusSuccess)
	defer f.server.Close()
	e := testExecutor(f, 0)

	data, err := e.Execute(context.Background(), 1, "SELECT application_id FROM t LIMIT 5")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(data.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(data.Rows))
	}

	create, refresh, del := f.counts()
	if create != 1 || refresh != 1 {
		t.Errorf("create/refresh = %d/%d, want 1/1", create, refresh)
	}
	if del != 1 {
		t.Errorf("delete count = %d, want exactly 1", del)
	}
}

func TestExecuteJobFailure(t *testing.T) {
	f := newFakeRedash(redash.JobStatusFailed)
	defer f.server.Close()
	e := testExecutor(f, 0)

	_, err := e.Execute(context.Background(), 1, "SELECT bad FROM nowhere")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ExecError", err)
	}
	if execErr.Kind != KindFailed {
		t.Errorf("Kind = %q, want %q", execErr.Kind, KindFailed)
	}
	if execErr.Message != "table does not exist" {
		t.Errorf("Message = %q", execErr.Message)
	}
	if execErr.Query != "SELECT bad FROM nowhere" {
		t.Errorf("Query = %q, query must be carried on errors", execErr.Query)
	}

	if _, _, del := f.counts(); del != 1 {
		t.Errorf("delete count = %d, want exactly 1", del)
	}
}

func TestExecuteTimeout(t *testing.T) {
	f := newFakeRedash(redash.JobStatusStarted) // never terminal
	defer f.server.Close()
	e := testExecutor(f, 0)

	start := time.Now()
	_, err := e.Execute(context.Background(), 1, "SELECT slow FROM t")
	elapsed := time.Since(start)

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ExecError", err)
	}
	if execErr.Kind != KindTimeout {
		t.Errorf("Kind = %q, want %q", execErr.Kind, KindTimeout)
	}
	if elapsed > 2*time.Second {
		t.Errorf("polling ran %v past the deadline", elapsed)
	}

	if _, _, del := f.counts(); del != 1 {
		t.Errorf("delete count = %d, delete must still be attempted on timeout", del)
	}
}

func TestExecuteCanceledStillCleansUp(t *testing.T) {
	f := newFakeRedash(redash.JobStatusStarted)
	defer f.server.Close()
	e := testExecutor(f, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := e.Execute(ctx, 1, "SELECT slow FROM t")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ExecError", err)
	}
	if execErr.Kind != KindCanceled {
		t.Errorf("Kind = %q, want %q", execErr.Kind, KindCanceled)
	}

	if _, _, del := f.counts(); del != 1 {
		t.Errorf("delete count = %d, delete must run even when canceled", del)
	}
}

func TestExecuteResultCache(t *testing.T) {
	f := newFakeRedash(redash.JobStatusSuccess)
	defer f.server.Close()
	e := testExecutor(f, 5*time.Minute)

	sql := "SELECT application_id FROM t"
	if _, err := e.Execute(context.Background(), 1, sql); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, err := e.Execute(context.Background(), 1, sql); err != nil {
		t.Fatalf("second Execute: %v", err)
	}

	if create, _, _ := f.counts(); create != 1 {
		t.Errorf("create count = %d, second run should come from cache", create)
	}
}
