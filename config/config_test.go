package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestParse_Formats(t *testing.T) {
	yamlDoc := `
codec: json
stdout:
  max_bytes: 64
cycles:
  per_word: 3
store:
  backend: goleveldb
  dir: /var/lib/zk
`
	tomlDoc := `
codec = "json"

[stdout]
max_bytes = 64

[cycles]
per_word = 3

[store]
backend = "goleveldb"
dir = "/var/lib/zk"
`
	for _, tc := range []struct{ format, doc string }{{"yaml", yamlDoc}, {"toml", tomlDoc}} {
		t.Run(tc.format, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.doc), tc.format)
			require.NoError(t, err)
			assert.Equal(t, "json", cfg.Codec)
			assert.Equal(t, 64, cfg.Stdout.MaxBytes)
			assert.Equal(t, uint64(3), cfg.Cycles.PerWord)
			assert.Equal(t, uint64(100), cfg.Cycles.PerTrap, "absent fields keep defaults")
			assert.Equal(t, "goleveldb", cfg.Store.Backend)
			assert.Equal(t, "receipts", cfg.Store.Name)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format string
		want   string
	}{
		{"unknown codec", "codec: cbor", "yaml", "validation failed"},
		{"negative stdout", "stdout: {max_bytes: -1}", "yaml", "validation failed"},
		{"leveldb without dir", "store: {backend: goleveldb}", "yaml", "validation failed"},
		{"bad level", "[log]\nlevel = \"loud\"", "toml", "validation failed"},
		{"malformed yaml", "codec: [", "yaml", "parse yaml"},
		{"malformed toml", "codec = ", "toml", "parse toml"},
		{"unknown format", "{}", "json", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.yml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "config load failed")
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"codec", "stdout", "cycles", "log", "store"} {
		assert.Contains(t, props, key)
	}
	assert.Contains(t, string(data), "goleveldb")
}

func TestLogConfig_Logger(t *testing.T) {
	l, err := LogConfig{Level: "warn"}.Logger()
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = LogConfig{Level: "loud"}.Logger()
	assert.Error(t, err)
}
