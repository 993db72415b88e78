// Command staticlint runs the analyzers the GoBarber client is checked with:
// analyzers from the Go toolchain, ineffassign, nilerr, a selectable set of
// staticcheck analyzers and deferexit, in one `multichecker.Main` invocation.
//
// The staticcheck selection is read from the file named by STATICLINT_CONFIG,
// or from config.json next to the binary:
//
//	{"staticcheck": ["SA", "ST1005"]}
//
// An entry matches an analyzer by its full name or by a name prefix.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/gobarber/cmd/staticlint/deferexit"
)

const configFileName = `config.json`

// ConfigData describes the configuration file.
type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
}

// defaultConfig is used when there is no configuration file.
var defaultConfig = ConfigData{
	Staticcheck: []string{"SA"},
}

func main() {
	path, err := configPath()
	if err != nil {
		panic(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers(cfg)...)
}

func configPath() (string, error) {
	if path := os.Getenv("STATICLINT_CONFIG"); path != "" {
		return path, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("in cmd/staticlint/main.go/configPath(): error while `os.Executable()` calling: %w", err)
	}

	return filepath.Join(filepath.Dir(executable), configFileName), nil
}

func loadConfig(path string) (ConfigData, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig, nil
	}
	if err != nil {
		return ConfigData{}, err
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ConfigData{}, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}

	return cfg, nil
}

// analyzers returns the analyzers that always run followed by the selected
// staticcheck ones.
func analyzers(cfg ConfigData) []*analysis.Analyzer {
	result := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		deferexit.Analyzer,
	}

	for _, v := range staticcheck.Analyzers {
		if selected(cfg.Staticcheck, v.Analyzer.Name) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func selected(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.HasPrefix(name, pattern) {
			return true
		}
	}

	return false
}
