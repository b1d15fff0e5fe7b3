package redash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the Redash REST API with static API-key auth.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("redash request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("redash error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// GetSchema fetches table/column metadata for a data source.
// The schema is wrapped in {"schema": [...]} on the wire.
func (c *Client) GetSchema(ctx context.Context, dataSourceID int) ([]SchemaTable, error) {
	var wrapper struct {
		Schema []SchemaTable `json:"schema"`
	}
	path := fmt.Sprintf("/api/data_sources/%d/schema", dataSourceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Schema, nil
}

func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var sources []DataSource
	if err := c.do(ctx, http.MethodGet, "/api/data_sources", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *Client) ListQueries(ctx context.Context) (*QueryList, error) {
	var list QueryList
	if err := c.do(ctx, http.MethodGet, "/api/queries", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) ListDashboards(ctx context.Context) (*DashboardList, error) {
	var list DashboardList
	if err := c.do(ctx, http.MethodGet, "/api/dashboards", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateQuery creates a named query object bound to SQL and a data source.
func (c *Client) CreateQuery(ctx context.Context, dataSourceID int, name, query string) (*Query, error) {
	payload := map[string]interface{}{
		"data_source_id": dataSourceID,
		"query":          query,
		"name":           name,
		"options":        map[string]interface{}{},
	}
	var created Query
	if err := c.do(ctx, http.MethodPost, "/api/queries", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RefreshQuery triggers an asynchronous execution and returns the job handle.
func (c *Client) RefreshQuery(ctx context.Context, queryID int) (*Job, error) {
	var wrapper struct {
		Job Job `json:"job"`
	}
	path := fmt.Sprintf("/api/queries/%d/refresh", queryID)
	if err := c.do(ctx, http.MethodPost, path, nil, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Job, nil
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var wrapper struct {
		Job Job `json:"job"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Job, nil
}

func (c *Client) GetQueryResults(ctx context.Context, queryID int) (*QueryResult, error) {
	var wrapper struct {
		QueryResult QueryResult `json:"query_result"`
	}
	path := fmt.Sprintf("/api/queries/%d/results", queryID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.QueryResult, nil
}

func (c *Client) DeleteQuery(ctx context.Context, queryID int) error {
	path := fmt.Sprintf("/api/queries/%d", queryID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
