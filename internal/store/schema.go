package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS child (
		id UUID PRIMARY KEY,
		family_id TEXT NOT NULL,
		child_name TEXT,
		date_of_birth DATE,
		gender TEXT,
		medical_record TEXT,
		extracted_from_chat BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_child_family_created ON child (family_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS doctor (
		id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		specialty TEXT,
		location TEXT,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Columns the engine reads or writes. Tables created by other services must
// carry them too.
var requiredColumns = []struct {
	table  string
	column string
}{
	{table: "child", column: "family_id"},
	{table: "child", column: "child_name"},
	{table: "child", column: "date_of_birth"},
	{table: "child", column: "gender"},
	{table: "child", column: "medical_record"},
	{table: "child", column: "extracted_from_chat"},
	{table: "child", column: "created_at"},
	{table: "doctor", column: "first_name"},
	{table: "doctor", column: "last_name"},
	{table: "doctor", column: "specialty"},
	{table: "doctor", column: "location"},
	{table: "doctor", column: "verified"},
}

// EnsurePostgresSchema creates missing tables and then checks that every
// column the engine depends on exists.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", firstLine(stmt), err)
		}
	}
	return ValidatePostgresSchema(ctx, pool)
}

func ValidatePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	for _, item := range requiredColumns {
		ok, err := columnExists(ctx, pool, item.table, item.column)
		if err != nil {
			return fmt.Errorf(
				"failed checking schema for %s.%s: %w",
				item.table,
				item.column,
				err,
			)
		}
		if !ok {
			return fmt.Errorf("required column %s.%s is missing", item.table, item.column)
		}
	}
	return nil
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stmt), "\n")
	return strings.TrimSpace(line)
}
