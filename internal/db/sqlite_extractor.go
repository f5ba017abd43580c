package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/schema"
)

// SQLiteExtractor reads tables from a SQLite database file.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

// ExtractSchema implements Extractor.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	names, err := e.tableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	return extractTables(ctx, names, e.extractTable)
}

func (e *SQLiteExtractor) tableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	rows, err := e.client.GetDB().QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}
	var err error

	if table.Columns, table.PrimaryKey, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}

	unique, err := e.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract unique columns: %w", err)
	}
	for i := range table.Columns {
		table.Columns[i].IsUnique = unique[table.Columns[i].Name]
	}

	if table.Relations, err = e.extractRelations(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	return table, nil
}

// extractColumns reads PRAGMA table_info, which also carries primary key order.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	pkByOrder := map[int]string{}

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			pkByOrder[pk] = name
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var pk []string
	for i := 1; i <= len(pkByOrder); i++ {
		if name, ok := pkByOrder[i]; ok {
			pk = append(pk, name)
		}
	}

	return columns, pk, nil
}

// uniqueColumns returns the columns covered alone by a user-declared unique
// index. Primary key indexes are skipped.
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}

	var indexes []string
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if unique == 1 && origin != "pk" {
			indexes = append(indexes, name)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	result := map[string]bool{}
	for _, index := range indexes {
		cols, err := e.indexColumns(ctx, index)
		if err != nil {
			return nil, err
		}
		if len(cols) == 1 {
			result[cols[0]] = true
		}
	}
	return result, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(index)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

func (e *SQLiteExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
		})
	}

	return relations, rows.Err()
}

// quoteIdent quotes a name for use inside a PRAGMA call.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
