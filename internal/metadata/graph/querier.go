package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Querier runs a parameterized Cypher query and returns its rows.
type Querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Conn is a Querier backed by a Neo4j driver.
type Conn struct {
	driver   neo4j.DriverWithContext
	database string
}

// Dial connects to uri with basic auth and verifies connectivity.
func Dial(ctx context.Context, uri, user, password, database string) (*Conn, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	return &Conn{driver: driver, database: database}, nil
}

// Query implements Querier.
func (c *Conn) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if c.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(c.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, c.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = rec.AsMap()
	}
	return rows, nil
}

// Close releases the driver.
func (c *Conn) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
