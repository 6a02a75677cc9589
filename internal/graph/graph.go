// Package graph is the narrow seam between the loader and the Neo4j driver.
// The loader only ever needs "run this Cypher with these parameters"; the
// session and connection lifecycle stay in here.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Runner is the database surface the loader depends on. Run returns the
// result rows as generic maps; RunVoid is for mutation-only statements.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	RunVoid(ctx context.Context, cypher string, params map[string]any) error
}

// DB wraps a Neo4j driver. One DB is acquired per run and closed at run end;
// no other component touches the connection.
type DB struct {
	driver   neo4j.DriverWithContext
	database string
	log      *zap.Logger
}

var _ Runner = (*DB)(nil)

// Connect opens a driver against the given bolt URI and verifies
// connectivity before returning.
func Connect(ctx context.Context, uri, user, password, database string, logger *zap.Logger) (*DB, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach %s: %w", uri, err)
	}
	return &DB{
		driver:   driver,
		database: database,
		log:      logger.Named("graph"),
	}, nil
}

// Run executes one statement in an auto-commit session and collects the
// result rows. LOAD CSV ... IN TRANSACTIONS requires an implicit transaction,
// which is exactly what a session Run provides.
func (d *DB) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})
	defer func() {
		if err := session.Close(ctx); err != nil {
			d.log.Warn("Failed to close session", zap.Error(err))
		}
	}()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	return rows, result.Err()
}

// RunVoid executes a mutation-only statement, discarding any result rows.
func (d *DB) RunVoid(ctx context.Context, cypher string, params map[string]any) error {
	_, err := d.Run(ctx, cypher, params)
	return err
}

// Close releases the driver.
func (d *DB) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
