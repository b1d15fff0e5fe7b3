package memory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
)

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "empty sql",
			sql:  "",
			want: nil,
		},
		{
			name: "single from",
			sql:  "SELECT * FROM users",
			want: []string{"users"},
		},
		{
			name: "from and join",
			sql:  "SELECT * FROM orders o JOIN users u ON o.user_id = u.id",
			want: []string{"orders", "users"},
		},
		{
			name: "case insensitive and deduplicated",
			sql:  "select a.* from Users a join USERS b on a.id = b.id",
			want: []string{"users"},
		},
		{
			name: "lowercase keywords",
			sql:  "select count(*) from a_application_stage_tracker",
			want: []string{"a_application_stage_tracker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTables(tt.sql)
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ExtractTables(%q) = %v, want %v", tt.sql, got, want)
			}
		})
	}
}

func TestAddTurnFIFOEviction(t *testing.T) {
	m := New(3)
	id := m.CreateSession()

	for i := 1; i <= 5; i++ {
		m.AddTurn(id, fmt.Sprintf("prompt %d", i), "SELECT 1 FROM t", 1, i, true)
	}

	history := m.GetHistory(id, 0)
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Oldest turns evicted first: 3, 4, 5 remain in order.
	for i, turn := range history {
		want := fmt.Sprintf("prompt %d", i+3)
		if turn.Prompt != want {
			t.Errorf("history[%d].Prompt = %q, want %q", i, turn.Prompt, want)
		}
	}
}

func TestHistoryNeverExceedsMaxAfterAnySequence(t *testing.T) {
	m := New(0) // default max
	id := m.CreateSession()

	for i := 0; i < 50; i++ {
		m.AddTurn(id, "q", "SELECT 1 FROM t", 1, 0, true)
		if got := len(m.GetHistory(id, 0)); got > DefaultMaxHistory {
			t.Fatalf("history length %d exceeds max %d after %d turns", got, DefaultMaxHistory, i+1)
		}
	}
}

func TestUnknownSessionYieldsEmptyHistory(t *testing.T) {
	m := New(5)
	if got := m.GetHistory("nope", 10); len(got) != 0 {
		t.Errorf("unknown session history = %v, want empty", got)
	}
	if got := m.GetLastQueryInfo("nope"); got != nil {
		t.Errorf("unknown session last query = %v, want nil", got)
	}
	if got := m.GetContextSummary("nope"); got != "No previous context." {
		t.Errorf("unknown session summary = %q", got)
	}
}

func TestAddTurnCreatesUnknownSession(t *testing.T) {
	m := New(5)
	m.AddTurn("fresh-id", "prompt", "SELECT 1 FROM t", 2, 1, true)
	history := m.GetHistory("fresh-id", 0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].DataSourceID != 2 {
		t.Errorf("DataSourceID = %d, want 2", history[0].DataSourceID)
	}
}

func TestGetLastQueryInfoReturnsNewestTurn(t *testing.T) {
	m := New(5)
	id := m.CreateSession()
	m.AddTurn(id, "first", "SELECT 1 FROM a", 1, 1, true)
	m.AddTurn(id, "second", "SELECT 1 FROM b", 1, 2, false)

	last := m.GetLastQueryInfo(id)
	if last == nil {
		t.Fatal("GetLastQueryInfo = nil, want newest turn")
	}
	if last.Prompt != "second" || last.Success {
		t.Errorf("newest turn = %+v", last)
	}
}

func TestGetContextSummaryFormat(t *testing.T) {
	m := New(10)
	id := m.CreateSession()
	m.AddTurn(id, "how many orders", "SELECT COUNT(*) FROM orders", 4, 1, true)

	summary := m.GetContextSummary(id)
	for _, fragment := range []string{
		"Recent conversation context:",
		"User asked: how many orders",
		"SQL generated: SELECT COUNT(*) FROM orders",
		"Tables used: orders",
		"Data source: 4",
		"Rows returned: 1",
	} {
		if !strings.Contains(summary, fragment) {
			t.Errorf("summary missing %q:\n%s", fragment, summary)
		}
	}
}

func TestConcurrentAppendsAreSafe(t *testing.T) {
	m := New(10)
	id := m.CreateSession()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddTurn(id, "q", "SELECT 1 FROM t", 1, 0, true)
		}()
	}
	wg.Wait()

	if got := len(m.GetHistory(id, 0)); got != 10 {
		t.Errorf("history length = %d, want 10 (max)", got)
	}
}
