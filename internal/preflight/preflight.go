package preflight

import (
	"vcxenc/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks that apply to the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckDecoderDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Ledger.Enabled {
		results = append(results, CheckFileLocation("Run ledger", cfg.Paths.LedgerPath))
	}
	if cfg.Paths.MetricsTextfile != "" {
		results = append(results, CheckFileLocation("Metrics textfile", cfg.Paths.MetricsTextfile))
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
