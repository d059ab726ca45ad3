package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "lookout.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "default-1"
redis:
  url: "redis://localhost:6379"
pipeline:
  max_visible: 100
sources:
  hillview:
    enabled: true
    kind: "hillview"
  mapillary:
    enabled: false
    kind: "mapillary"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "default-1", config.Instance)
	assert.Equal(t, "redis://localhost:6379", config.Redis.URL)
	assert.Equal(t, 100, *config.Pipeline.MaxVisible)
	assert.Len(t, config.Sources, 2)
	assert.True(t, config.Sources["hillview"].Enabled)
	assert.Equal(t, []string{"hillview"}, config.EnabledSources())
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/lookout.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "version: [unclosed")

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "default-1"
sources:
  hillview:
    enabled: true
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", config.Redis.URL, "redis defaults to localhost")
	assert.Equal(t, 200, *config.Pipeline.MaxVisible, "max_visible defaults to 200")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing version",
			yaml:    "instance: \"x\"\nsources:\n  a:\n    enabled: true\n",
			wantErr: "unsupported version",
		},
		{
			name:    "missing instance",
			yaml:    "version: \"1.0\"\nsources:\n  a:\n    enabled: true\n",
			wantErr: "instance name is required",
		},
		{
			name:    "no sources",
			yaml:    "version: \"1.0\"\ninstance: \"x\"\n",
			wantErr: "no sources defined",
		},
		{
			name:    "bad source kind",
			yaml:    "version: \"1.0\"\ninstance: \"x\"\nsources:\n  a:\n    enabled: true\n    kind: \"ftp\"\n",
			wantErr: "invalid kind",
		},
		{
			name:    "empty redis url",
			yaml:    "version: \"1.0\"\ninstance: \"x\"\nredis:\n  url: \"\"\nsources:\n  a:\n    enabled: true\n",
			wantErr: "redis.url must not be empty",
		},
		{
			name:    "negative max_visible",
			yaml:    "version: \"1.0\"\ninstance: \"x\"\npipeline:\n  max_visible: -1\nsources:\n  a:\n    enabled: true\n",
			wantErr: "max_visible must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.yaml)
			config, err := Load(configPath)
			require.Error(t, err)
			assert.Nil(t, config)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
