package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skillforge/internal/config"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		level, format string
		wantErr       string
		debug         bool
	}{
		{level: "debug", format: "console", debug: true},
		{level: "info", format: "json"},
		{level: "warn", format: "json"},
		{level: "error", format: "console"},
		{level: "trace", format: "json", wantErr: `parsing log level "trace"`},
		{level: "info", format: "xml", wantErr: `unknown log format "xml"`},
	}
	for _, tc := range cases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			logger, err := NewLogger(config.LoggingConfig{Level: tc.level, Format: tc.format})
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

// TestJSONLine checks the fields every production line carries.
func TestJSONLine(t *testing.T) {
	zc, err := zapConfig(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.Nil(t, zc.Sampling, "gain and roll lines must never be sampled away")

	path := filepath.Join(t.TempDir(), "server.log")
	zc.OutputPaths = []string{path}
	logger, err := build(zc)
	require.NoError(t, err)

	id := uuid.MustParse("8b7e1b84-3b5c-4e2b-9a53-1f6c0f0f3a11")
	logger.Named("progression").Info("skill gained", Player(id), zap.Float64("value", 50.1))
	logger.Debug("filtered")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(raw, &line), "exactly one JSON line expected, got %q", raw)
	assert.Equal(t, "skillforge", line["service"])
	assert.Equal(t, "progression", line["logger"])
	assert.Equal(t, id.String(), line["player"])
	assert.Equal(t, 50.1, line["value"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, line["ts"])
}
