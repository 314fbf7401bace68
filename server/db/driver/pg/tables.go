// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package pg

import (
	"context"
	"database/sql"
	"fmt"

	"decred.org/ringdex/server/db/driver/pg/internal"
)

const (
	filledTableName    = "filled"
	cancelledTableName = "cancelled"
	cutoffsTableName   = "cutoffs"
	metaTableName      = "meta"
)

type tableStmt struct {
	name string
	stmt string
}

var createPublicTableStatements = []tableStmt{
	{filledTableName, internal.CreateAmountsTable},
	{cancelledTableName, internal.CreateAmountsTable},
	{cutoffsTableName, internal.CreateCutoffsTable},
	{metaTableName, internal.CreateMetaTable},
}

var tableMap = func() map[string]string {
	m := make(map[string]string, len(createPublicTableStatements))
	for _, pair := range createPublicTableStatements {
		m[pair.name] = pair.stmt
	}
	return m
}()

// publicTable is the schema-qualified name of a ledger table.
func publicTable(tableName string) string {
	return publicSchema + "." + tableName
}

// CreateTable creates one of the known tables by name. The table will be
// created in the specified schema (schema.tableName). If schema is empty,
// "public" is used.
func CreateTable(ctx context.Context, db *sql.DB, schema, tableName string) (bool, error) {
	createCommand, tableNameFound := tableMap[tableName]
	if !tableNameFound {
		return false, fmt.Errorf("table name %s unknown", tableName)
	}

	if schema == "" {
		schema = publicSchema
	}
	return createTable(ctx, db, createCommand, schema, tableName)
}

// PrepareTables ensures that all of the ledger tables exist and that the meta
// table has its ring count row.
func PrepareTables(ctx context.Context, db *sql.DB) error {
	for _, ts := range createPublicTableStatements {
		created, err := CreateTable(ctx, db, publicSchema, ts.name)
		if err != nil {
			return fmt.Errorf("failed to create %s table: %w", ts.name, err)
		}
		if created {
			log.Infof("Created new %s table.", ts.name)
		}
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(internal.InitMeta, publicTable(metaTableName)))
	if err != nil {
		return fmt.Errorf("failed to initialize ring count: %w", err)
	}
	return nil
}

// dropTables drops every ledger table.
func dropTables(ctx context.Context, db sqlExecutor) error {
	for _, ts := range createPublicTableStatements {
		if err := dropTable(ctx, db, publicTable(ts.name)); err != nil {
			return err
		}
	}
	return nil
}
