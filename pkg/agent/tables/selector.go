package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

const (
	// maxCandidates bounds the schema subset sent to the LLM.
	maxCandidates = 100
	// maxColumnsShown bounds columns listed per table in the LLM prompt.
	maxColumnsShown = 20
)

// Patterns that mean the user named the table outright.
var explicitMentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`from\s+table\s+(\w+)`),
	regexp.MustCompile(`from\s+(\w+)\s+table`),
	regexp.MustCompile(`table\s+(\w+)`),
	regexp.MustCompile(`in\s+(\w+)\s+table`),
	regexp.MustCompile(`in\s+table\s+(\w+)`),
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

var stopWords = map[string]struct{}{
	"from": {}, "with": {}, "this": {}, "that": {}, "what": {}, "where": {},
	"show": {}, "give": {}, "find": {}, "list": {}, "last": {}, "first": {},
	"only": {}, "data": {}, "source": {}, "look": {}, "table": {},
	"record": {}, "database": {}, "query": {}, "select": {}, "the": {},
	"and": {}, "or": {},
}

// Selector narrows a data source schema down to the tables relevant to a
// question. Stages are priority-ordered, first match wins; the LLM stage
// fails open to the full candidate set.
type Selector struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewSelector(llmProvider llm.LLMProvider, logger *log.Logger) *Selector {
	return &Selector{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Select returns the relevant subset of tables for the question. The result
// is always a subset of the candidates (or the single explicit match), and
// the call never blocks past the LLM provider's own deadline.
func (s *Selector) Select(ctx context.Context, question string, all []redash.SchemaTable) []redash.SchemaTable {
	if len(all) == 0 {
		return nil
	}

	questionLower := strings.ToLower(question)

	// Stage 1: explicit mention ("from table X", "in X table", ...).
	// Resolving one skips every later stage including the LLM call.
	for _, pattern := range explicitMentionPatterns {
		match := pattern.FindStringSubmatch(questionLower)
		if match == nil {
			continue
		}
		mentioned := match[1]
		for _, table := range all {
			if strings.EqualFold(table.Name, mentioned) {
				s.logger.Printf("[TABLES] User specified table: %s", table.Name)
				return []redash.SchemaTable{table}
			}
		}
		for _, table := range all {
			nameLower := strings.ToLower(table.Name)
			if strings.Contains(nameLower, mentioned) || strings.Contains(mentioned, nameLower) {
				s.logger.Printf("[TABLES] User specified table (fuzzy match): %s", table.Name)
				return []redash.SchemaTable{table}
			}
		}
	}

	// Stage 2: a full table name appearing verbatim in the question wins.
	for _, table := range all {
		if table.Name != "" && strings.Contains(questionLower, strings.ToLower(table.Name)) {
			s.logger.Printf("[TABLES] Table name found in question: %s", table.Name)
			return []redash.SchemaTable{table}
		}
	}

	// Stage 3: keyword pre-filter to bound prompt size.
	candidates := s.filterByKeywords(questionLower, all)

	// Stage 4: LLM confirmation over the candidates.
	return s.confirmWithLLM(ctx, question, candidates)
}

func (s *Selector) filterByKeywords(questionLower string, all []redash.SchemaTable) []redash.SchemaTable {
	var keywords []string
	for _, word := range wordPattern.FindAllString(questionLower, -1) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}

	var candidates []redash.SchemaTable
	for _, table := range all {
		if tableMatches(table, keywords) {
			candidates = append(candidates, table)
		}
	}

	if len(candidates) == 0 {
		s.logger.Printf("[TABLES] No keyword matches, using first %d tables", maxCandidates)
		candidates = all
	}
	if len(candidates) > maxCandidates {
		s.logger.Printf("[TABLES] Too many candidates (%d), limiting to %d", len(candidates), maxCandidates)
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

func tableMatches(table redash.SchemaTable, keywords []string) bool {
	nameLower := strings.ToLower(table.Name)
	for _, keyword := range keywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	for _, column := range table.Columns {
		columnLower := strings.ToLower(column)
		for _, keyword := range keywords {
			if strings.Contains(columnLower, keyword) {
				return true
			}
		}
	}
	return false
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

func (s *Selector) confirmWithLLM(ctx context.Context, question string, candidates []redash.SchemaTable) []redash.SchemaTable {
	prompt := buildDiscoveryPrompt(question, candidates)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithMaxTokens(500))
	if err != nil {
		s.logger.Printf("[TABLES] LLM discovery failed, keeping all candidates: %v", err)
		return candidates
	}

	names, err := parseTableNames(response)
	if err != nil {
		s.logger.Printf("[TABLES] Could not parse LLM response, keeping all candidates: %v", err)
		return candidates
	}

	nameSet := make(map[string]struct{}, len(names))
	for _, name := range names {
		nameSet[strings.ToLower(name)] = struct{}{}
	}

	var relevant []redash.SchemaTable
	for _, table := range candidates {
		if _, ok := nameSet[strings.ToLower(table.Name)]; ok {
			relevant = append(relevant, table)
		}
	}

	s.logger.Printf("[TABLES] LLM confirmed %d of %d candidates", len(relevant), len(candidates))
	return relevant
}

func buildDiscoveryPrompt(question string, candidates []redash.SchemaTable) string {
	var summary strings.Builder
	for i, table := range candidates {
		if i > 0 {
			summary.WriteString("\n\n")
		}
		columns := table.Columns
		truncated := 0
		if len(columns) > maxColumnsShown {
			truncated = len(columns) - maxColumnsShown
			columns = columns[:maxColumnsShown]
		}
		summary.WriteString("Table: " + table.Name + "\nColumns: " + strings.Join(columns, ", "))
		if truncated > 0 {
			summary.WriteString(fmt.Sprintf(", ... and %d more columns", truncated))
		}
	}

	return fmt.Sprintf(`Given this database schema and user question, identify which tables are most relevant.

DATABASE SCHEMA:
%s

USER QUESTION: %s

Respond with ONLY a JSON array of table names that are relevant, like: ["table1", "table2"]
If unsure, include all potentially relevant tables.`, summary.String(), question)
}

// parseTableNames pulls the first bracketed JSON array out of the response,
// tolerating surrounding prose.
func parseTableNames(response string) ([]string, error) {
	raw := jsonArrayPattern.FindString(response)
	if raw == "" {
		raw = strings.TrimSpace(response)
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("parse table names: %w", err)
	}
	return names, nil
}
