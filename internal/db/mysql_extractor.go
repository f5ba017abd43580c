package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// MySQLExtractor reads tables from one MySQL database.
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates an extractor for schemaName.
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema implements Extractor.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	names, err := e.tableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	return extractTables(ctx, names, e.extractTable)
}

func (e *MySQLExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.client.GetDB().QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}
	var err error

	if table.Columns, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}

	if table.PrimaryKey, err = e.extractPrimaryKey(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}

	if table.Relations, err = e.extractRelations(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	return table, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) AS is_unique,
			c.data_type
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable, dataType string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultVal, &col.IsUnique, &dataType); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		if dataType == "enum" {
			if col.EnumValues, err = parseEnumValues(col.Type); err != nil {
				return nil, err
			}
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// parseEnumValues splits a MySQL column type such as enum('a','b').
func parseEnumValues(columnType string) ([]string, error) {
	if !strings.HasPrefix(strings.ToLower(columnType), "enum(") {
		return nil, nil
	}

	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if end <= start {
		return nil, fmt.Errorf("invalid enum type format: %s", columnType)
	}

	var values []string
	for _, part := range strings.Split(columnType[start+1:end], ",") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && part[0] == '\'' && part[len(part)-1] == '\'' {
			part = part[1 : len(part)-1]
		}
		values = append(values, part)
	}

	return values, nil
}

func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (e *MySQLExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRelations(rows)
}
