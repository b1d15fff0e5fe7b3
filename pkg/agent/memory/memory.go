package memory

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many turns a session keeps before FIFO eviction.
const DefaultMaxHistory = 10

// Turn is one completed (prompt, response) pair. Turns are never mutated
// after creation.
type Turn struct {
	Timestamp    time.Time `json:"timestamp"`
	Prompt       string    `json:"prompt"`
	SQL          string    `json:"sql,omitempty"`
	DataSourceID int       `json:"data_source_id"`
	RowCount     int       `json:"row_count"`
	Success      bool      `json:"success"`
	TablesUsed   []string  `json:"tables_used,omitempty"`
}

// ConversationMemory keeps bounded, per-session turn history in process
// memory. Sessions are created on first reference to an unknown id.
type ConversationMemory struct {
	mu         sync.Mutex
	sessions   map[string][]Turn
	maxHistory int
}

func New(maxHistory int) *ConversationMemory {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &ConversationMemory{
		sessions:   make(map[string][]Turn),
		maxHistory: maxHistory,
	}
}

// CreateSession registers a new empty session and returns its id.
func (m *ConversationMemory) CreateSession() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = []Turn{}
	m.mu.Unlock()
	return id
}

// AddTurn appends a timestamped turn and evicts the oldest turns beyond
// maxHistory. The append is atomic, so concurrent callers are safe.
func (m *ConversationMemory) AddTurn(sessionID, prompt, sql string, dataSourceID, rowCount int, success bool) {
	turn := Turn{
		Timestamp:    time.Now(),
		Prompt:       prompt,
		SQL:          sql,
		DataSourceID: dataSourceID,
		RowCount:     rowCount,
		Success:      success,
		TablesUsed:   ExtractTables(sql),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], turn)
	if len(turns) > m.maxHistory {
		turns = turns[len(turns)-m.maxHistory:]
	}
	m.sessions[sessionID] = turns
}

// GetHistory returns the last n turns for the session. An unknown session id
// yields empty history, not an error.
func (m *ConversationMemory) GetHistory(sessionID string, lastN int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[sessionID]
	if lastN > 0 && len(turns) > lastN {
		turns = turns[len(turns)-lastN:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// GetLastQueryInfo returns the most recent turn, or nil.
func (m *ConversationMemory) GetLastQueryInfo(sessionID string) *Turn {
	history := m.GetHistory(sessionID, 1)
	if len(history) == 0 {
		return nil
	}
	return &history[0]
}

// GetContextSummary renders the last 3 turns as fixed-format text for
// inclusion in subsequent prompts.
func (m *ConversationMemory) GetContextSummary(sessionID string) string {
	history := m.GetHistory(sessionID, 3)
	if len(history) == 0 {
		return "No previous context."
	}

	var b strings.Builder
	b.WriteString("Recent conversation context:")
	for i, turn := range history {
		b.WriteString(fmt.Sprintf("\n\nTurn %d:", i+1))
		b.WriteString("\n  User asked: " + truncate(turn.Prompt, 100))
		if turn.SQL != "" {
			b.WriteString("\n  SQL generated: " + truncate(turn.SQL, 100))
		}
		if len(turn.TablesUsed) > 0 {
			b.WriteString("\n  Tables used: " + strings.Join(turn.TablesUsed, ", "))
		}
		b.WriteString(fmt.Sprintf("\n  Data source: %d", turn.DataSourceID))
		b.WriteString(fmt.Sprintf("\n  Rows returned: %d", turn.RowCount))
	}
	return b.String()
}

// ClearSession drops all history for a session.
func (m *ConversationMemory) ClearSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// ActiveSessions lists known session ids.
func (m *ConversationMemory) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var tablePattern = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+(\w+)`)

// ExtractTables returns the deduplicated, case-insensitive set of
// identifiers following FROM/JOIN. Empty SQL yields an empty set.
func ExtractTables(sql string) []string {
	if sql == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tables []string
	for _, match := range tablePattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(match[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
