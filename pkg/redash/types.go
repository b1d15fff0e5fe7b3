package redash

// SchemaTable is one table of a data source schema, as returned by
// GET /api/data_sources/{id}/schema. Columns are plain column names.
type SchemaTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

type DataSource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Query struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Query        string `json:"query"`
	DataSourceID int    `json:"data_source_id"`
}

type QueryList struct {
	Count   int     `json:"count"`
	Results []Query `json:"results"`
}

type Dashboard struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type DashboardList struct {
	Count   int         `json:"count"`
	Results []Dashboard `json:"results"`
}

// Job is the asynchronous execution handle returned by a query refresh.
// Redash job ids are opaque strings (celery task ids).
type Job struct {
	ID            string `json:"id"`
	Status        int    `json:"status"`
	Error         string `json:"error"`
	QueryResultID *int   `json:"query_result_id"`
}

// Redash job status values.
const (
	JobStatusPending  = 1
	JobStatusStarted  = 2
	JobStatusSuccess  = 3
	JobStatusFailed   = 4
	JobStatusCanceled = 5
)

type Column struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendly_name"`
	Type         string `json:"type"`
}

// ResultData holds the columns and rows of a finished query run.
// Rows are column-name → value maps, matching the Redash wire format.
type ResultData struct {
	Columns []Column                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

type QueryResult struct {
	ID   int        `json:"id"`
	Data ResultData `json:"data"`
}
