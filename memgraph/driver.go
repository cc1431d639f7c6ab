package memgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Driver runs Cypher queries. It is satisfied by *BoltDriver and by test
// doubles.
type Driver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error)
	Close(ctx context.Context) error
}

// BoltDriver talks to Memgraph over Bolt.
type BoltDriver struct {
	Driver neo4j.DriverWithContext
}

// Connect opens a Bolt connection and verifies it.
func Connect(ctx context.Context, uri, username, password string) (*BoltDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("memgraph: open driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("memgraph: verify connectivity: %w", err)
	}
	return &BoltDriver{Driver: driver}, nil
}

func (d *BoltDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *BoltDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("memgraph: execute query: %w", err)
	}
	return *result, nil
}
