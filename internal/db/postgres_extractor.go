package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

const varcharType = "varchar"

// PostgresExtractor reads tables from one PostgreSQL schema.
type PostgresExtractor struct {
	client *PostgresClient
	schema string
}

// NewPostgresExtractor creates an extractor for schemaName.
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{
		client: client,
		schema: schemaName,
	}
}

// ExtractSchema implements Extractor.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	names, err := e.tableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	return extractTables(ctx, names, e.extractTable)
}

func (e *PostgresExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, e.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}

	checks, err := e.extractChecks(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract check constraints: %w", err)
	}
	for i := range columns {
		if expr, ok := checks[columns[i].Name]; ok {
			columns[i].CheckConstraint = &expr
		}
	}
	table.Columns = columns

	if table.PrimaryKey, err = e.extractPrimaryKey(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}

	if table.Relations, err = e.extractRelations(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	return table, nil
}

// normalizePostgresType shortens verbose information_schema type names.
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// Array udt names carry a leading underscore: _int4 is integer[].
		if strings.HasPrefix(udtName, "_") {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) AS is_unique,
			c.udt_name,
			c.character_maximum_length
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	var userTypes []string

	for rows.Next() {
		var col schema.Column
		var dataType, nullable, udtName string
		var charMaxLength *int

		if err := rows.Scan(&col.Name, &dataType, &nullable, &col.DefaultValue, &col.IsUnique, &udtName, &charMaxLength); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		col.Type = normalizePostgresType(dataType, udtName, charMaxLength)
		if dataType == "USER-DEFINED" {
			userTypes = append(userTypes, udtName)
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(userTypes) == 0 {
		return columns, nil
	}

	enums, err := e.extractEnumValues(ctx, userTypes)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		if values, ok := enums[columns[i].Type]; ok {
			columns[i].EnumValues = values
		}
	}

	return columns, nil
}

// extractEnumValues returns the labels of each named enum type in sort order.
func (e *PostgresExtractor) extractEnumValues(ctx context.Context, typeNames []string) (map[string][]string, error) {
	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1 AND t.typname = ANY($2)
		ORDER BY t.typname, e.enumsortorder
	`, e.schema, typeNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var typName, label string
		if err := rows.Scan(&typName, &label); err != nil {
			return nil, err
		}
		result[typName] = append(result[typName], label)
	}

	return result, rows.Err()
}

// extractChecks returns single-column CHECK expressions keyed by column.
// NOT NULL constraints, which PostgreSQL also reports as checks, are skipped.
func (e *PostgresExtractor) extractChecks(ctx context.Context, tableName string) (map[string]string, error) {
	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT ccu.column_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON cc.constraint_name = tc.constraint_name
			AND cc.constraint_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'CHECK'
			AND tc.table_schema = $1
			AND tc.table_name = $2
			AND cc.check_clause NOT LIKE '%IS NOT NULL'
		ORDER BY tc.constraint_name
	`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checks := make(map[string]string)
	for rows.Next() {
		var column, clause string
		if err := rows.Scan(&column, &clause); err != nil {
			return nil, err
		}
		if _, seen := checks[column]; !seen {
			checks[column] = clause
		}
	}

	return checks, rows.Err()
}

func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (e *PostgresExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.GetConnection().Query(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRelations(rows)
}

// scanRelations reads (source column, target table, target column) rows.
func scanRelations(rows rowScanner) ([]schema.Relation, error) {
	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}
