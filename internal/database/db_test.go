package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "plain path starts the query string",
			path: "/data/results.db",
			want: "/data/results.db?_pragma=journal_mode(WAL)",
		},
		{
			name: "file URI without query starts the query string",
			path: "file:/data/results.db",
			want: "file:/data/results.db?_pragma=journal_mode(WAL)",
		},
		{
			name: "file URI with query continues it",
			path: "file:results?mode=memory&cache=shared",
			want: "file:results?mode=memory&cache=shared&_pragma=journal_mode(WAL)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildConnectionString(tt.path)
			assert.True(t, strings.HasPrefix(got, tt.want), "got %s", got)
			assert.Equal(t, 1, strings.Count(got, "?"))
		})
	}
}

func TestNew_InMemorySharedCache(t *testing.T) {
	db, err := New(Config{
		Path: "file:db_test_shared?mode=memory&cache=shared",
		Name: "db-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Conn().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`INSERT INTO t (v) VALUES ('x')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNew_OnDiskCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "results.db")

	db, err := New(Config{Path: path, Name: "disk-test"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, path, db.Path())

	_, err = db.Conn().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
}
