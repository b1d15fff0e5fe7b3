package sqlgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// ErrGeneration marks an unparsable or absent SQL generation. Execution is
// never attempted after this error.
var ErrGeneration = errors.New("sql generation failed")

// Result is a successfully generated query. It is never returned together
// with an error.
type Result struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

// Generator turns a natural-language question plus a schema subset into SQL
// via one LLM call with robust output parsing.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate produces SQL for the question against the given tables.
// contextSummary carries prior conversation turns and may be empty.
func (g *Generator) Generate(ctx context.Context, question string, tables []redash.SchemaTable, contextSummary string) (*Result, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no relevant tables found", ErrGeneration)
	}

	prompt := buildPrompt(question, tables, contextSummary)

	response, err := g.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithMaxTokens(1000))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	result, err := parseResponse(response)
	if err != nil {
		g.logger.Printf("[SQLGEN] Could not parse LLM response: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if result.SQL == "" {
		return nil, fmt.Errorf("%w: response contained no sql", ErrGeneration)
	}

	g.logger.Printf("[SQLGEN] Generated SQL: %s", result.SQL)
	return result, nil
}

func buildPrompt(question string, tables []redash.SchemaTable, contextSummary string) string {
	var schema strings.Builder
	for i, table := range tables {
		if i > 0 {
			schema.WriteString("\n\n")
		}
		schema.WriteString("Table: " + table.Name)
		for _, column := range table.Columns {
			schema.WriteString("\n  - " + column)
		}
	}

	var contextBlock string
	if contextSummary != "" {
		contextBlock = "\n\nCONVERSATION CONTEXT:\n" + contextSummary
	}

	return fmt.Sprintf(`You are an expert SQL query generator. Generate a SQL query to answer the user's question.

DATABASE SCHEMA:
%s%s

USER QUESTION: %s

IMPORTANT RULES FOR MYSQL SYNTAX:
1. Generate ONLY valid MySQL syntax
2. CRITICAL: DO NOT include database name prefixes in table names
   WRONG: FROM ZC_Prod.a_application_stage_tracker
   CORRECT: FROM a_application_stage_tracker
   (The data source already points to the correct database)
3. For time intervals: use NOW() - INTERVAL X HOUR (not 'X hours')
   Examples:
   - Last 2 hours: NOW() - INTERVAL 2 HOUR
   - Last 24 hours: NOW() - INTERVAL 24 HOUR
   - Last 7 days: NOW() - INTERVAL 7 DAY
4. For today: use DATE(column) = CURDATE()
5. Use >= for date comparisons with NOW()
6. Common column patterns:
   - created_at, updated_at, date_created for timestamps
   - current_status, status, state for status values
7. For JOINs:
   - Use table aliases but NO database prefixes
   - CRITICAL: Only use columns that EXIST in the schema
   - Check the schema carefully before assuming column names
8. Return ONLY JSON with this structure:
{
  "sql": "SELECT ...",
  "explanation": "This query does..."
}

Generate the SQL now:`, schema.String(), contextBlock, question)
}

var (
	jsonObjectPattern   = regexp.MustCompile(`(?s)\{.*\}`)
	sqlFieldPattern     = regexp.MustCompile(`(?s)"sql"\s*:\s*"(.*?)(?:"\s*,?\s*"explanation)`)
	explainFieldPattern = regexp.MustCompile(`(?s)"explanation"\s*:\s*"(.*?)"(?:\s*\}|$)`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// parseResponse recovers {sql, explanation} from model output. Order:
// direct JSON parse, first top-level {...} span, then regex field
// extraction that tolerates literal newlines inside the sql string value.
func parseResponse(response string) (*Result, error) {
	trimmed := strings.TrimSpace(response)

	var result Result
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return &result, nil
	}

	raw := jsonObjectPattern.FindString(trimmed)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(raw), &result); err == nil {
		return &result, nil
	}

	// Model emitted real newlines inside the sql string value, which is
	// invalid JSON. Pull the fields out manually and squash whitespace.
	sqlMatch := sqlFieldPattern.FindStringSubmatch(raw)
	if sqlMatch == nil {
		return nil, fmt.Errorf("could not extract sql field")
	}
	sql := strings.TrimSpace(whitespacePattern.ReplaceAllString(sqlMatch[1], " "))

	explanation := "Generated SQL query based on the schema and question"
	if expMatch := explainFieldPattern.FindStringSubmatch(raw); expMatch != nil {
		explanation = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", "").Replace(expMatch[1]))
	}

	return &Result{SQL: sql, Explanation: explanation}, nil
}
