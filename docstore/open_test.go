package docstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/artifactcache/doccache"
	"github.com/jonwraymond/artifactcache/observe"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"sqlite", Config{Driver: DriverSQLite, DSN: ":memory:"}, nil},
		{"default driver", Config{DSN: ":memory:"}, nil},
		{"postgres", Config{Driver: DriverPostgres, DSN: "host=localhost"}, nil},
		{"mysql", Config{Driver: "mysql", DSN: "x"}, ErrUnsupportedDriver},
		{"missing dsn", Config{Driver: DriverSQLite}, ErrMissingDSN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpen_RejectsInvalidConfig(t *testing.T) {
	_, err := Open(Config{Driver: "oracle", DSN: "x"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestGormLogger_LogsQueriesAndFailures(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observe.NewLoggerWithWriter("debug", &buf)
	require.NoError(t, err)

	db, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:", MaxOpenConns: 1}, logger)
	require.NoError(t, err)
	store := New(db)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	_, err = store.GetDocument(ctx, 1)
	require.ErrorIs(t, err, doccache.ErrDocumentNotFound)
	assert.Contains(t, buf.String(), `"msg":"query"`)
	assert.NotContains(t, buf.String(), `"msg":"query failed"`)

	buf.Reset()
	require.Error(t, db.WithContext(ctx).Exec("SELECT * FROM missing_table").Error)
	assert.Contains(t, buf.String(), `"msg":"query failed"`)
}
