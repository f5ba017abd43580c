package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Source
		wantErr bool
	}{
		{name: "postgres", url: "postgres://u:p@localhost/db", want: Source{Kind: Postgres, DSN: "postgres://u:p@localhost/db"}},
		{name: "postgresql", url: "postgresql://localhost/db", want: Source{Kind: Postgres, DSN: "postgresql://localhost/db"}},
		{name: "mysql strips scheme", url: "mysql://u:p@tcp(localhost:3306)/shop", want: Source{Kind: MySQL, DSN: "u:p@tcp(localhost:3306)/shop"}},
		{name: "sqlite path", url: "sqlite://data/app.db", want: Source{Kind: SQLite, DSN: "data/app.db"}},
		{name: "empty", url: "", wantErr: true},
		{name: "unknown scheme", url: "oracle://x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("user:pass@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("user:pass@tcp(localhost:3306)/")
	assert.Error(t, err)

	_, err = ParseDatabaseName("not a dsn")
	assert.Error(t, err)
}

func TestOpenErrors(t *testing.T) {
	_, _, err := Open(context.Background(), Source{Kind: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")

	_, _, err = Open(context.Background(), Source{Kind: MySQL, DSN: "user@tcp(localhost)/"})
	assert.ErrorContains(t, err, "failed to determine database name")
}

func TestNormalizePostgresType(t *testing.T) {
	length := 64
	tests := []struct {
		dataType string
		udtName  string
		length   *int
		want     string
	}{
		{dataType: "timestamp with time zone", want: "timestamptz"},
		{dataType: "character varying", length: &length, want: "varchar(64)"},
		{dataType: "character varying", want: "varchar"},
		{dataType: "character", length: &length, want: "char(64)"},
		{dataType: "ARRAY", udtName: "_int4", want: "integer[]"},
		{dataType: "ARRAY", udtName: "_text", want: "text[]"},
		{dataType: "USER-DEFINED", udtName: "order_status", want: "order_status"},
		{dataType: "integer", want: "integer"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePostgresType(tt.dataType, tt.udtName, tt.length))
		})
	}
}
