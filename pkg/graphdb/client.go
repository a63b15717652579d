// Package graphdb owns the Neo4j knowledge graph: schema bootstrap,
// event ingestion, timeline reads and graph maintenance for case data.
package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps a Neo4j driver scoped to one database.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// ClientParams holds the connection settings for a new Client.
type ClientParams struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewClient connects to Neo4j and verifies the connection before
// returning.
func NewClient(ctx context.Context, params ClientParams) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	if params.Database == "" {
		params.Database = "neo4j"
	}
	return &Client{driver: driver, database: params.Database}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
}

func (c *Client) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.session(ctx)
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, fn)
}

func (c *Client) read(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.session(ctx)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, fn)
}
