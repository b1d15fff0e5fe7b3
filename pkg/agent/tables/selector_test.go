package tables

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, nil, options...)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var testSchema = []redash.SchemaTable{
	{Name: "a_application_stage_tracker", Columns: []string{"application_id", "current_status", "created_at"}},
	{Name: "users", Columns: []string{"id", "email", "created_at"}},
	{Name: "payments", Columns: []string{"id", "user_id", "amount", "utr"}},
}

func TestSelectExplicitMentionSkipsLLM(t *testing.T) {
	fake := &fakeLLM{response: `["users"]`}
	s := NewSelector(fake, testLogger())

	got := s.Select(context.Background(), "show records from table payments", testSchema)

	if len(got) != 1 || got[0].Name != "payments" {
		t.Fatalf("Select = %v, want [payments]", got)
	}
	if fake.calls != 0 {
		t.Errorf("LLM called %d times, want 0", fake.calls)
	}
}

func TestSelectExplicitMentionFuzzyMatch(t *testing.T) {
	fake := &fakeLLM{}
	s := NewSelector(fake, testLogger())

	got := s.Select(context.Background(), "count rows in payment table", testSchema)

	if len(got) != 1 || got[0].Name != "payments" {
		t.Fatalf("Select = %v, want [payments]", got)
	}
	if fake.calls != 0 {
		t.Errorf("LLM called %d times, want 0", fake.calls)
	}
}

func TestSelectLiteralTableNameInQuestion(t *testing.T) {
	fake := &fakeLLM{}
	s := NewSelector(fake, testLogger())

	question := "Give me 5 application_id from a_application_stage_tracker created in last 30 days"
	got := s.Select(context.Background(), question, testSchema)

	if len(got) != 1 || got[0].Name != "a_application_stage_tracker" {
		t.Fatalf("Select = %v, want [a_application_stage_tracker]", got)
	}
	if fake.calls != 0 {
		t.Errorf("LLM called %d times, want 0", fake.calls)
	}
}

func TestSelectLLMConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     []string
	}{
		{
			name:     "clean json array",
			response: `["users"]`,
			want:     []string{"users"},
		},
		{
			name:     "array wrapped in prose",
			response: "The relevant tables are:\n[\"users\", \"payments\"]\nHope that helps!",
			want:     []string{"users", "payments"},
		},
		{
			name:     "unparsable response fails open",
			response: "I cannot answer that",
			want:     []string{"users", "payments"},
		},
		{
			name: "llm error fails open",
			err:  errors.New("model offline"),
			want: []string{"users", "payments"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{response: tt.response, err: tt.err}
			s := NewSelector(fake, testLogger())

			// "email" and "amount" keywords keep users and payments as
			// candidates without naming either table outright.
			got := s.Select(context.Background(), "compare email signups against amount paid", testSchema)

			if len(got) != len(tt.want) {
				t.Fatalf("Select returned %d tables, want %d: %v", len(got), len(tt.want), got)
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("Select[%d] = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestSelectOutputIsSubsetOfCandidates(t *testing.T) {
	fake := &fakeLLM{response: `["users", "not_a_real_table"]`}
	s := NewSelector(fake, testLogger())

	got := s.Select(context.Background(), "compare email signups against amount paid", testSchema)

	for _, table := range got {
		if table.Name == "not_a_real_table" {
			t.Error("selector returned a table outside the candidate set")
		}
	}
}

func TestSelectEmptySchema(t *testing.T) {
	s := NewSelector(&fakeLLM{}, testLogger())
	if got := s.Select(context.Background(), "anything", nil); len(got) != 0 {
		t.Errorf("Select on empty schema = %v, want empty", got)
	}
}
