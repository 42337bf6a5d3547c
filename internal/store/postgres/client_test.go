package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://x@db/y", Host: "ignored"},
			want: "postgres://x@db/y",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "localhost", Database: "predicthub", User: "postgres", Password: "pw"},
			want: "postgres://postgres:pw@localhost:5432/predicthub?sslmode=disable",
		},
		{
			name: "escapes password",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "d", User: "u", Password: "p@ss/word", SSLMode: "require"},
			want: "postgres://u:p%40ss%2Fword@db:6543/d?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestMigrationFiles(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	data, err := migrationsFS.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{"snapshot_runs", "market_views", "audit_log"} {
		assert.True(t, strings.Contains(string(data), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestNumericRoundTrip(t *testing.T) {
	assert.Equal(t, "0", numeric(nil))

	n, err := parseNumeric("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, 256, n.BitLen())

	_, err = parseNumeric("1.5")
	assert.Error(t, err)
}

func TestWindowQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	tests := []struct {
		name     string
		opts     domain.ListOpts
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			opts:    domain.ListOpts{},
			wantSQL: "SELECT * FROM t ORDER BY at DESC",
		},
		{
			name:     "range and paging",
			opts:     domain.ListOpts{Since: &since, Until: &until, Limit: 10, Offset: 20},
			wantSQL:  "SELECT * FROM t WHERE at >= $1 AND at <= $2 ORDER BY at DESC LIMIT $3 OFFSET $4",
			wantArgs: []any{since, until, 10, 20},
		},
		{
			name:     "limit only",
			opts:     domain.ListOpts{Limit: 5},
			wantSQL:  "SELECT * FROM t ORDER BY at DESC LIMIT $1",
			wantArgs: []any{5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := windowQuery("SELECT * FROM t", "at", tt.opts)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
