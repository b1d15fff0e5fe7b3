package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Known services the router can dispatch to.
const (
	ServiceRedash     = "redash"
	ServiceFilesystem = "filesystem"
	ServiceGit        = "git"
)

// Actions within the redash service.
const (
	ActionListDataSources = "list_data_sources"
	ActionListQueries     = "list_queries"
	ActionListDashboards  = "list_dashboards"
	ActionSQLQuery        = "sql_query"
	ActionUnknown         = "unknown"
)

// Result is the outcome of routing a prompt. An empty Service with zero
// Confidence means no service matched.
type Result struct {
	Service         string   `json:"service"`
	Action          string   `json:"action"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	DataQuery       bool     `json:"data_query"`
}

// serviceRule declares the keyword/pattern table for one service.
type serviceRule struct {
	name        string
	keywords    []string
	patterns    []*regexp.Regexp
	description string
}

// Rules are evaluated in slice order so that score ties resolve
// deterministically.
var serviceRules = []serviceRule{
	{
		name: ServiceRedash,
		keywords: []string{
			"query", "queries", "dashboard", "dashboards", "visualization",
			"redash", "analytics", "report", "reports", "data source",
			"data sources", "datasource", "datasources", "database",
			"sql", "chart", "graph", "metrics", "kpi",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`show.*dashboard`),
			regexp.MustCompile(`list.*queries`),
			regexp.MustCompile(`execute.*query`),
			regexp.MustCompile(`run.*query`),
			regexp.MustCompile(`data.*source`),
			regexp.MustCompile(`redash.*`),
		},
		description: "Redash analytics and data visualization",
	},
	{
		name:     ServiceFilesystem,
		keywords: []string{"file", "files", "directory", "folder"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`read.*file`),
			regexp.MustCompile(`list.*files`),
		},
		description: "File system operations",
	},
	{
		name:     ServiceGit,
		keywords: []string{"git", "commit", "repository", "branch"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`git\s+(status|log|diff)`),
		},
		description: "Git version control",
	},
}

// Metadata phrases short-circuit routing before the data-intent check.
// Order matters: the first pattern found wins. Filler words between verb
// and noun ("list all queries") are tolerated.
var metadataActions = []struct {
	pattern *regexp.Regexp
	action  string
}{
	{regexp.MustCompile(`(?:list|show|available|what)\s+(?:\w+\s+)?data\s*sources?`), ActionListDataSources},
	{regexp.MustCompile(`(?:list|show|available|what)\s+(?:\w+\s+)?queries`), ActionListQueries},
	{regexp.MustCompile(`(?:list|show|available|what)\s+(?:\w+\s+)?dashboards`), ActionListDashboards},
}

// Terms that signal the user wants rows, not metadata.
var dataIndicators = []string{
	"show me", "give me", "get all", "get me", "find",
	"how many", "count", "total", "sum", "average",
	"last", "recent", "today", "yesterday", "this week",
	"approved", "pending", "rejected", "completed",
	"from table", "in table", "where", "with status",
}

// Route classifies a prompt. Priority is fixed: exact metadata phrases,
// then data-intent terms, then keyword/pattern scoring over the service
// table. Pure function, no side effects.
func Route(prompt string) Result {
	promptLower := strings.ToLower(prompt)

	// Step 1: metadata phrases bypass SQL generation entirely.
	for _, m := range metadataActions {
		if m.pattern.MatchString(promptLower) {
			return Result{
				Service:    ServiceRedash,
				Action:     m.action,
				Confidence: 100,
				Reasoning:  fmt.Sprintf("Matched metadata phrase for %s", m.action),
			}
		}
	}

	// Step 2: data-intent terms mean the prompt needs SQL generation.
	if isDataQuery(promptLower) {
		return Result{
			Service:    ServiceRedash,
			Action:     ActionSQLQuery,
			Confidence: 90,
			Reasoning:  "Prompt asks for data, requires SQL generation",
			DataQuery:  true,
		}
	}

	// Step 3: score every service; arg-max, ties broken by table order.
	var best *serviceRule
	bestScore := 0
	var bestKeywords []string

	for i := range serviceRules {
		rule := &serviceRules[i]
		score := 0
		var matched []string

		for _, keyword := range rule.keywords {
			if strings.Contains(promptLower, keyword) {
				score += 2
				matched = append(matched, keyword)
			}
		}
		for _, pattern := range rule.patterns {
			if pattern.MatchString(promptLower) {
				score += 3
			}
		}

		if score > bestScore {
			best = rule
			bestScore = score
			bestKeywords = matched
		}
	}

	if best == nil {
		return Result{
			Confidence: 0,
			Reasoning:  "No matching service found",
		}
	}

	confidence := float64(bestScore) / 20 * 100
	if confidence > 100 {
		confidence = 100
	}

	preview := bestKeywords
	if len(preview) > 3 {
		preview = preview[:3]
	}

	return Result{
		Service:         best.name,
		Action:          determineAction(best.name, promptLower),
		Confidence:      confidence,
		Reasoning:       fmt.Sprintf("Selected %s based on matching keywords: %s", best.name, strings.Join(preview, ", ")),
		MatchedKeywords: bestKeywords,
	}
}

func isDataQuery(promptLower string) bool {
	for _, indicator := range dataIndicators {
		if strings.Contains(promptLower, indicator) {
			return true
		}
	}
	// "records from the X table" style phrasing without an indicator term
	if strings.Contains(promptLower, "table") {
		for _, prep := range []string{"from", "in", "at"} {
			if strings.Contains(promptLower, prep) {
				return true
			}
		}
	}
	return false
}

func determineAction(service, promptLower string) string {
	if service != ServiceRedash {
		switch service {
		case ServiceGit:
			for _, op := range []string{"status", "log", "diff", "commit"} {
				if strings.Contains(promptLower, op) {
					return "git_" + op
				}
			}
		case ServiceFilesystem:
			if strings.Contains(promptLower, "read") {
				return "read_file"
			}
			return "list_directory"
		}
		return ActionUnknown
	}

	// Longer phrases first so the more specific intent wins.
	switch {
	case strings.Contains(promptLower, "data source") || strings.Contains(promptLower, "datasource"):
		return ActionListDataSources
	case strings.Contains(promptLower, "dashboard"):
		return ActionListDashboards
	case strings.Contains(promptLower, "queries"):
		return ActionListQueries
	default:
		return ActionListDataSources
	}
}
