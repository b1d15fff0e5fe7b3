package sqlgen

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var testTables = []redash.SchemaTable{
	{Name: "a_application_stage_tracker", Columns: []string{"application_id", "current_status", "created_at"}},
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name            string
		response        string
		wantSQL         string
		wantErr         bool
		wantExplanation string
	}{
		{
			name:            "direct json",
			response:        `{"sql": "SELECT 1", "explanation": "trivial"}`,
			wantSQL:         "SELECT 1",
			wantExplanation: "trivial",
		},
		{
			name:            "json wrapped in prose",
			response:        "Here is the query:\n{\"sql\": \"SELECT id FROM users\", \"explanation\": \"lists ids\"}\nLet me know!",
			wantSQL:         "SELECT id FROM users",
			wantExplanation: "lists ids",
		},
		{
			name: "literal newlines inside sql value",
			response: `{
  "sql": "SELECT application_id
FROM a_application_stage_tracker
WHERE created_at >= NOW() - INTERVAL 30 DAY
LIMIT 5",
  "explanation": "recent applications"
}`,
			wantSQL:         "SELECT application_id FROM a_application_stage_tracker WHERE created_at >= NOW() - INTERVAL 30 DAY LIMIT 5",
			wantExplanation: "recent applications",
		},
		{
			name:     "no json at all",
			response: "I am unable to write SQL for that.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseResponse(%q) expected error, got %+v", tt.response, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResponse returned error: %v", err)
			}
			if got.SQL != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", got.SQL, tt.wantSQL)
			}
			if got.Explanation != tt.wantExplanation {
				t.Errorf("Explanation = %q, want %q", got.Explanation, tt.wantExplanation)
			}
		})
	}
}

func TestGenerateSuccess(t *testing.T) {
	fake := &fakeLLM{response: `{"sql": "SELECT application_id FROM a_application_stage_tracker WHERE created_at >= NOW() - INTERVAL 30 DAY LIMIT 5", "explanation": "recent rows"}`}
	g := NewGenerator(fake, testLogger())

	result, err := g.Generate(context.Background(), "last 30 days of applications", testTables, "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(result.SQL, "INTERVAL 30 DAY") {
		t.Errorf("SQL = %q, want interval clause", result.SQL)
	}
	if strings.Contains(result.SQL, ".a_application_stage_tracker") {
		t.Errorf("SQL = %q, must not carry a database-name prefix", result.SQL)
	}
}

func TestGeneratePromptContainsSchemaAndRules(t *testing.T) {
	fake := &fakeLLM{response: `{"sql": "SELECT 1", "explanation": "x"}`}
	g := NewGenerator(fake, testLogger())

	if _, err := g.Generate(context.Background(), "anything", testTables, "previous turn summary"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	for _, fragment := range []string{
		"Table: a_application_stage_tracker",
		"- application_id",
		"DO NOT include database name prefixes",
		"NOW() - INTERVAL",
		"previous turn summary",
	} {
		if !strings.Contains(fake.lastPrompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		tables   []redash.SchemaTable
		response string
		llmErr   error
	}{
		{"no tables", nil, "", nil},
		{"llm error", testTables, "", errors.New("model offline")},
		{"unparsable output", testTables, "sorry, no SQL here", nil},
		{"json without sql field", testTables, `{"explanation": "but no query"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{response: tt.response, err: tt.llmErr}
			g := NewGenerator(fake, testLogger())

			result, err := g.Generate(context.Background(), "question", tt.tables, "")
			if err == nil {
				t.Fatalf("Generate = %+v, want error", result)
			}
			if !errors.Is(err, ErrGeneration) {
				t.Errorf("error %v does not wrap ErrGeneration", err)
			}
			if result != nil {
				t.Errorf("result must be nil on error, got %+v", result)
			}
		})
	}
}
