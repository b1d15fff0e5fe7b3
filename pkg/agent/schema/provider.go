package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

// ErrSchemaFetch marks transport/auth failures while reading a data source
// schema. An empty table list is a valid result, not an error.
var ErrSchemaFetch = errors.New("schema fetch failed")

// Provider returns the visible tables of a data source.
type Provider interface {
	GetSchema(ctx context.Context, dataSourceID int) ([]redash.SchemaTable, error)
}

// RedashProvider reads schemas from the Redash API.
type RedashProvider struct {
	client *redash.Client
}

var _ Provider = &RedashProvider{}

func NewRedashProvider(client *redash.Client) *RedashProvider {
	return &RedashProvider{client: client}
}

func (p *RedashProvider) GetSchema(ctx context.Context, dataSourceID int) ([]redash.SchemaTable, error) {
	tables, err := p.client.GetSchema(ctx, dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: data source %d: %v", ErrSchemaFetch, dataSourceID, err)
	}
	return tables, nil
}
