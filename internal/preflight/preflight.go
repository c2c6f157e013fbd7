package preflight

import (
	"context"

	"onemin/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options toggles the checks that reach the network.
type Options struct {
	SkipLLM bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Watch folder", cfg.Watch.Folder),
		CheckFile("YouTube client secrets", cfg.YouTube.ClientSecretsFile, "youtube.client_secrets_file"),
		CheckFile("YouTube token", cfg.YouTube.TokenFile, "youtube.token_file"),
		CheckNotifications(cfg),
	}

	if !opts.SkipLLM {
		results = append(results, CheckLLM(ctx, "Metadata LLM", cfg.LLM))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
