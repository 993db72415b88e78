package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"

	"github.com/patric-chuzhbe/gobarber/cmd/staticlint/deferexit"
)

func names(list []*analysis.Analyzer) map[string]bool {
	result := map[string]bool{}
	for _, analyzer := range list {
		result[analyzer.Name] = true
	}

	return result
}

func TestAnalyzers(t *testing.T) {
	always := len(analyzers(ConfigData{}))

	selectedByName := names(analyzers(ConfigData{Staticcheck: []string{"SA1000", "SA4006"}}))
	assert.True(t, selectedByName["SA1000"])
	assert.True(t, selectedByName["SA4006"])
	assert.False(t, selectedByName["SA1001"])
	assert.True(t, selectedByName[deferexit.Analyzer.Name])
	assert.True(t, selectedByName["nilerr"])

	byPrefix := analyzers(ConfigData{Staticcheck: []string{"SA"}})
	assert.Greater(t, len(byPrefix), always+2)
	for _, analyzer := range byPrefix[always:] {
		assert.Regexp(t, "^SA", analyzer.Name)
	}

	assert.Len(t, analyzers(ConfigData{Staticcheck: []string{""}}), always)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, cfg)

	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"staticcheck": ["SA5", "ST1005"]}`), 0o600))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SA5", "ST1005"}, cfg.Staticcheck)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("STATICLINT_CONFIG", "/etc/staticlint.json")

	path, err := configPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/staticlint.json", path)
}
