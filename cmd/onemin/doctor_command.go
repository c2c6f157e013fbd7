package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"onemin/internal/deps"
	"onemin/internal/preflight"
	"onemin/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, credentials and service connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			lines := renderSectionHeader("Dependencies", colorize)
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			lines = append(lines, dependencyLines(statuses, colorize)...)
			failures += len(deps.MissingRequired(statuses))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipLLM: skipLLM})
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			led, err := ctx.openLedger()
			if err == nil {
				err = led.Ping(cmd.Context())
				_ = led.Close()
			}
			if err != nil {
				failures++
				lines = append(lines, renderStatusLine("Ingestion ledger", statusError, err.Error(), colorize))
			} else {
				lines = append(lines, renderStatusLine("Ingestion ledger", statusOK, cfg.LedgerPath(), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failures > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "check", fmt.Sprintf("%d check(s) failed", failures), nil)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip the LLM connectivity probe")
	return cmd
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		switch {
		case status.Available:
			detail := status.Path
			if status.Version != "" {
				detail = fmt.Sprintf("%s (%s)", status.Version, status.Path)
			}
			lines = append(lines, renderStatusLine(status.Name, statusOK, detail, colorize))
		case status.Optional:
			lines = append(lines, renderStatusLine(status.Name, statusWarn, status.Detail+" (optional)", colorize))
		default:
			lines = append(lines, renderStatusLine(status.Name, statusError, status.Detail, colorize))
		}
	}
	return lines
}
