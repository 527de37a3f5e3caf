package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrecmetrics/internal/fragment"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "clauses", cfg.FragmentModel)
	assert.Equal(t, fragment.ModelClauses, cfg.Model())
	assert.False(t, cfg.CleanSQL)
	assert.False(t, cfg.FoldIdentifiers)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.Empty(t, cfg.Database)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "empty.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, fragment.ModelSelections, cfg.Model())
	assert.Equal(t, fragment.Options{Clean: true, FoldIdentifiers: true}, cfg.ExtractorOptions())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "out/reports", cfg.OutputDir)
	assert.Equal(t, "metrics.db", cfg.Database)
	assert.Equal(t, "spider/database", cfg.SchemaDir)
	assert.Equal(t, "shop", cfg.DefaultDBID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("QRM_WORKERS", "2")
	t.Setenv("QRM_FRAGMENT_MODEL", "clauses")
	t.Setenv("QRM_DATABASE", "/tmp/other.db")

	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, fragment.ModelClauses, cfg.Model())
	assert.Equal(t, "/tmp/other.db", cfg.Database)
	assert.Equal(t, "out/reports", cfg.OutputDir, "file value kept when env is unset")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing file", path: filepath.Join("testdata", "absent.yaml"), wantErr: "failed to open config file"},
		{name: "unknown key", path: filepath.Join("testdata", "unknown.yaml"), wantErr: "worker_count"},
		{name: "bad model", path: filepath.Join("testdata", "bad_model.yaml"), wantErr: "unknown fragment model"},
		{name: "zero workers", env: map[string]string{"QRM_WORKERS": "0"}, wantErr: "workers must be at least 1"},
		{name: "bad level", env: map[string]string{"QRM_LOG_LEVEL": "loud"}, wantErr: "log level"},
		{name: "bad format", env: map[string]string{"QRM_LOG_FORMAT": "xml"}, wantErr: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
