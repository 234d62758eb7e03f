package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMergesYAMLOverDefaults(t *testing.T) {
	yamlContent := `
retrieval:
  k_dense: 42
  min_relevance_score: 35
mysql:
  host: "db.internal"
  database: "resumes_prod"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 42, cfg.Retrieval.KDense)
	assert.Equal(t, 35.0, cfg.Retrieval.MinRelevanceScore)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, "resumes_prod", cfg.MySQL.Database)
	// fields untouched by the YAML keep their defaults
	assert.Equal(t, 300, cfg.Retrieval.KSparse)
	assert.Equal(t, 3306, cfg.MySQL.Port)
}

func TestLoadConfigWithoutPathFallsBackToDefaults(t *testing.T) {
	dir, err := os.MkdirTemp("", "config-test-empty")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Retrieval.RRFK)
}

func TestMySQLDSN(t *testing.T) {
	cfg := MySQLConfig{Username: "u", Password: "p", Host: "h", Port: 3306, Database: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}
