package database

import (
	"context"

	"github.com/dyng/subfeed/types"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

type Neo4jDb struct {
	config *types.Config
	driver neo4j.DriverWithContext
}

func NewNeo4jDb(config *types.Config) *Neo4jDb {
	return &Neo4jDb{
		config: config,
	}
}

func (db *Neo4jDb) Connect() error {
	conf := db.config.Neo4j

	driver, err := neo4j.NewDriverWithContext(conf.Url, neo4j.BasicAuth(conf.Username, conf.Password, ""))
	if err != nil {
		return errors.Wrap(err, "create neo4j driver")
	}

	db.driver = driver
	return nil
}

func (db *Neo4jDb) GetDriver() neo4j.DriverWithContext {
	return db.driver
}

func (db *Neo4jDb) Close() error {
	return db.driver.Close(context.Background())
}

func (db *Neo4jDb) Ping(ctx context.Context) error {
	if err := db.driver.VerifyConnectivity(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (db *Neo4jDb) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}

func (db *Neo4jDb) ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := db.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// unavailable marks a transport level failure so callers can tell it apart
// from a missing channel or item.
func unavailable(err error) error {
	return errors.Wrapf(types.ErrStoreUnavailable, "%v", err)
}

// classify maps driver errors onto the store's sentinel errors, leaving
// sentinels produced inside transaction functions untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrChannelNotFound), errors.Is(err, types.ErrItemNotFound):
		return err
	case neo4j.IsConnectivityError(err), errors.Is(err, context.DeadlineExceeded):
		return unavailable(err)
	default:
		return err
	}
}
