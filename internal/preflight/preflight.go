package preflight

import (
	"platter/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config: workspace and
// library directory access, the external binaries each stage shells out to,
// and whether the optional integrations are configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace", cfg.Paths.WorkspaceDir),
		CheckDirectoryAccess("Movies library", cfg.Paths.MoviesDir),
		CheckDirectoryAccess("TV library", cfg.Paths.TVDir),
		CheckBinary("MakeMKV", cfg.MakemkvBinary(), "required for ripping"),
		CheckBinary("HandBrakeCLI", cfg.HandBrakeBinary(), "required for transcoding"),
		CheckEject(),
		CheckCatalog(cfg),
		CheckNotifier(cfg),
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
