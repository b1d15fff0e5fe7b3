package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/answer"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/executor"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/memory"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/router"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/schema"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/sqlgen"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/tables"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// Lister is the subset of the Redash client the agent needs for metadata
// dispatch and data source resolution.
type Lister interface {
	ListDataSources(ctx context.Context) ([]redash.DataSource, error)
	ListQueries(ctx context.Context) (*redash.QueryList, error)
	ListDashboards(ctx context.Context) (*redash.DashboardList, error)
}

// Runner executes generated SQL. Satisfied by *executor.Executor.
type Runner interface {
	Execute(ctx context.Context, dataSourceID int, sql string) (*redash.ResultData, error)
}

// ProcessResult is the structured outcome of one processed prompt.
type ProcessResult struct {
	Success      bool               `json:"success"`
	Answer       string             `json:"answer,omitempty"`
	SQL          string             `json:"sql,omitempty"`
	Explanation  string             `json:"explanation,omitempty"`
	RowCount     int                `json:"row_count"`
	RawData      *redash.ResultData `json:"raw_data,omitempty"`
	Service      string             `json:"service,omitempty"`
	Action       string             `json:"action,omitempty"`
	Error        string             `json:"error,omitempty"`
	SessionID    string             `json:"session_id"`
	DataSourceID int                `json:"data_source_id,omitempty"`
}

// Agent wires the full pipeline: routing, schema discovery, table selection,
// SQL generation, execution and answer synthesis, with per-session memory.
// All collaborators are injected; the agent holds no hidden global state.
type Agent struct {
	lister              Lister
	schemas             schema.Provider
	selector            *tables.Selector
	generator           *sqlgen.Generator
	runner              Runner
	synthesizer         *answer.Synthesizer
	memory              *memory.ConversationMemory
	defaultDataSourceID int
	logger              *log.Logger
}

type Deps struct {
	Lister              Lister
	Schemas             schema.Provider
	Selector            *tables.Selector
	Generator           *sqlgen.Generator
	Runner              Runner
	Synthesizer         *answer.Synthesizer
	Memory              *memory.ConversationMemory
	DefaultDataSourceID int
	Logger              *log.Logger
}

func New(deps Deps) *Agent {
	return &Agent{
		lister:              deps.Lister,
		schemas:             deps.Schemas,
		selector:            deps.Selector,
		generator:           deps.Generator,
		runner:              deps.Runner,
		synthesizer:         deps.Synthesizer,
		memory:              deps.Memory,
		defaultDataSourceID: deps.DefaultDataSourceID,
		logger:              deps.Logger,
	}
}

// AnalyzePrompt classifies a prompt without executing anything. Repeated
// calls with identical input yield identical results.
func (a *Agent) AnalyzePrompt(prompt string) router.Result {
	return router.Route(prompt)
}

// CreateSession starts a new conversation session.
func (a *Agent) CreateSession() string {
	return a.memory.CreateSession()
}

// GetHistory returns the last n turns of a session.
func (a *Agent) GetHistory(sessionID string, lastN int) []memory.Turn {
	return a.memory.GetHistory(sessionID, lastN)
}

// ClearSession drops a session's history.
func (a *Agent) ClearSession(sessionID string) {
	a.memory.ClearSession(sessionID)
}

// ActiveSessions lists known session ids.
func (a *Agent) ActiveSessions() []string {
	return a.memory.ActiveSessions()
}

// ProcessPrompt runs a prompt end-to-end. It never panics past this
// boundary: unexpected failures become a generic internal error.
func (a *Agent) ProcessPrompt(ctx context.Context, prompt, sessionID string) *ProcessResult {
	return a.ProcessPromptOnDataSource(ctx, prompt, sessionID, 0)
}

// ProcessPromptOnDataSource pins data queries to a specific data source
// instead of resolving one from the prompt. Zero means resolve as usual.
func (a *Agent) ProcessPromptOnDataSource(ctx context.Context, prompt, sessionID string, dataSourceID int) (result *ProcessResult) {
	if sessionID == "" {
		sessionID = a.memory.CreateSession()
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("[AGENT] Panic while processing prompt: %v", r)
			result = &ProcessResult{
				Success:   false,
				Error:     "Internal error while processing the prompt",
				SessionID: sessionID,
			}
		}
	}()

	route := router.Route(prompt)

	switch {
	case route.DataQuery:
		result = a.handleDataQuery(ctx, prompt, sessionID, dataSourceID)
	case route.Service == router.ServiceRedash:
		result = a.handleMetadata(ctx, route)
	case route.Service == "":
		result = &ProcessResult{
			Success: false,
			Error:   "Could not determine which service to use",
		}
	default:
		result = &ProcessResult{
			Success: false,
			Service: route.Service,
			Action:  route.Action,
			Error:   fmt.Sprintf("Service %s is not available in this deployment", route.Service),
		}
	}

	result.SessionID = sessionID
	return result
}

// handleDataQuery runs the SQL pipeline: schema → table selection →
// generation → execution → synthesis, recording the turn either way.
func (a *Agent) handleDataQuery(ctx context.Context, prompt, sessionID string, dataSourceID int) *ProcessResult {
	result := &ProcessResult{
		Service: router.ServiceRedash,
		Action:  router.ActionSQLQuery,
	}

	if dataSourceID == 0 {
		dataSourceID = a.resolveDataSource(ctx, prompt)
	}
	result.DataSourceID = dataSourceID

	defer func() {
		a.memory.AddTurn(sessionID, prompt, result.SQL, dataSourceID, result.RowCount, result.Success)
	}()

	allTables, err := a.schemas.GetSchema(ctx, dataSourceID)
	if err != nil {
		a.logger.Printf("[AGENT] Schema fetch failed: %v", err)
		result.Error = fmt.Sprintf("Could not read the data source schema: %v", err)
		return result
	}

	relevant := a.selector.Select(ctx, prompt, allTables)

	contextSummary := a.memory.GetContextSummary(sessionID)
	if contextSummary == "No previous context." {
		contextSummary = ""
	}

	generated, err := a.generator.Generate(ctx, prompt, relevant, contextSummary)
	if err != nil {
		// A failed generation blocks execution entirely.
		a.logger.Printf("[AGENT] SQL generation failed: %v", err)
		result.Error = fmt.Sprintf("Could not generate SQL: %v", err)
		return result
	}
	result.SQL = generated.SQL
	result.Explanation = generated.Explanation

	data, err := a.runner.Execute(ctx, dataSourceID, generated.SQL)
	if err != nil {
		var execErr *executor.ExecError
		if errors.As(err, &execErr) {
			result.Error = fmt.Sprintf("SQL execution %s: %s", execErr.Kind, execErr.Message)
		} else {
			result.Error = fmt.Sprintf("SQL execution failed: %v", err)
		}
		return result
	}

	result.Success = true
	result.RawData = data
	result.RowCount = len(data.Rows)
	result.Answer = a.synthesizer.Synthesize(ctx, prompt, generated.SQL, data)
	return result
}

// handleMetadata dispatches list-operations directly, bypassing SQL
// generation.
func (a *Agent) handleMetadata(ctx context.Context, route router.Result) *ProcessResult {
	result := &ProcessResult{
		Service: route.Service,
		Action:  route.Action,
	}

	switch route.Action {
	case router.ActionListDataSources:
		sources, err := a.lister.ListDataSources(ctx)
		if err != nil {
			result.Error = fmt.Sprintf("Could not list data sources: %v", err)
			return result
		}
		names := make([]string, 0, len(sources))
		for _, ds := range sources {
			names = append(names, fmt.Sprintf("%s (id %d)", ds.Name, ds.ID))
		}
		result.Success = true
		result.RowCount = len(sources)
		result.Answer = fmt.Sprintf("Found %d data sources: %s", len(sources), strings.Join(names, ", "))
	case router.ActionListQueries:
		list, err := a.lister.ListQueries(ctx)
		if err != nil {
			result.Error = fmt.Sprintf("Could not list queries: %v", err)
			return result
		}
		result.Success = true
		result.RowCount = list.Count
		result.Answer = fmt.Sprintf("Found %d saved queries.", list.Count)
	case router.ActionListDashboards:
		list, err := a.lister.ListDashboards(ctx)
		if err != nil {
			result.Error = fmt.Sprintf("Could not list dashboards: %v", err)
			return result
		}
		result.Success = true
		result.RowCount = list.Count
		result.Answer = fmt.Sprintf("Found %d dashboards.", list.Count)
	default:
		result.Error = fmt.Sprintf("Unknown metadata action: %s", route.Action)
	}
	return result
}

// resolveDataSource picks the data source for a data query: a data source
// whose name appears in the prompt wins, otherwise the configured default.
func (a *Agent) resolveDataSource(ctx context.Context, prompt string) int {
	sources, err := a.lister.ListDataSources(ctx)
	if err != nil {
		a.logger.Printf("[AGENT] Could not list data sources, using default: %v", err)
		return a.defaultDataSourceID
	}

	promptLower := strings.ToLower(prompt)
	for _, ds := range sources {
		if ds.Name != "" && strings.Contains(promptLower, strings.ToLower(ds.Name)) {
			a.logger.Printf("[AGENT] User specified data source %q (id %d)", ds.Name, ds.ID)
			return ds.ID
		}
	}
	return a.defaultDataSourceID
}
