package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{"PORT", "MODEL_PATH", "DATA_PATH", "GIN_MODE", "HOLIDAYS"}

func TestLoadConfig(t *testing.T) {
	testData := map[string]struct {
		env      map[string]string
		expected *Config
	}{
		"defaults": {
			expected: &Config{
				Port:      DefaultPort,
				ModelPath: DefaultModelPath,
				DataPath:  DefaultDataPath,
			},
		},
		"overrides": {
			env: map[string]string{
				"PORT":       "9000",
				"MODEL_PATH": "/models/sales.json",
				"DATA_PATH":  "/data/sales.xlsx",
				"GIN_MODE":   "release",
				"HOLIDAYS":   "true",
			},
			expected: &Config{
				Port:      "9000",
				ModelPath: "/models/sales.json",
				DataPath:  "/data/sales.xlsx",
				GinMode:   "release",
				Holidays:  true,
			},
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			for _, key := range envKeys {
				t.Setenv(key, "")
			}
			for key, value := range td.env {
				t.Setenv(key, value)
			}
			assert.Equal(t, td.expected, LoadConfig())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
		// godotenv does not override variables that are present, even when empty
		os.Unsetenv(key)
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.Nil(t, os.WriteFile(path, []byte("PORT=8123\nMODEL_PATH=model.json\n"), 0o644))

	cfg, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, "8123", cfg.Port)
	assert.Equal(t, "model.json", cfg.ModelPath)
	assert.Equal(t, DefaultDataPath, cfg.DataPath)
	assert.Equal(t, ":8123", cfg.Addr())

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Nil(t, err)
}
