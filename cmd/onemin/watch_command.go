package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"onemin/internal/config"
	"onemin/internal/ledger"
	"onemin/internal/logging"
	"onemin/internal/pipeline"
	"onemin/internal/preflight"
	"onemin/internal/services"
	"onemin/internal/watcher"
)

type processor interface {
	Process(ctx context.Context, videoPath string, opts pipeline.Options) (*pipeline.Run, error)
}

// ingestHandler runs new files through the pipeline, skipping any file whose
// path, size and mtime already have a terminal ledger entry.
func ingestHandler(proc processor, led *ledger.Store, opts pipeline.Options, logger *slog.Logger) watcher.Handler {
	return func(ctx context.Context, path string) error {
		if led != nil {
			key, err := ledger.KeyFor(path)
			if err != nil {
				return err
			}
			entry, err := led.Lookup(ctx, key)
			if err != nil {
				return err
			}
			if entry != nil && entry.Handled() {
				logger.Debug("video already handled; skipping",
					logging.Video(path),
					logging.String("status", string(entry.Status)),
				)
				return nil
			}
		}
		_, err := proc.Process(ctx, path, opts)
		return err
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipApproval bool
	var processExisting bool
	var folder string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the upload folder and process new videos as they settle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := logging.NewComponentLogger(ctx.log(), "watch")
			if err := overrideWatchFolder(cfg, folder); err != nil {
				return err
			}

			lock := flock.New(cfg.WatchLockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return services.Wrap(services.ErrTransient, "watch", "lock", "acquire watch lock", err)
			}
			if !locked {
				return services.Wrap(services.ErrValidation, "watch", "lock",
					fmt.Sprintf("another watcher already holds %s", cfg.WatchLockPath()), nil)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, result := range preflight.Failed(preflight.RunAll(runCtx, cfg, preflight.Options{SkipLLM: true})) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "videos may fail later in the pipeline"),
					logging.String(logging.FieldErrorHint, "run 'onemin doctor' for details"),
				)
			}

			stack, err := ctx.newController(nil)
			if err != nil {
				return err
			}
			defer stack.Close()

			opts := pipeline.Options{SkipApproval: skipApproval || cfg.Watch.SkipApproval}
			handler := ingestHandler(stack.controller, stack.ledger, opts, logger)
			w := watcher.New(watcher.OptionsFromConfig(cfg), ctx.log())

			if processExisting || cfg.Watch.ProcessExisting {
				count, err := w.ScanExisting(runCtx, cfg.Watch.Folder, handler)
				if err != nil {
					return err
				}
				logger.Info("existing files scanned",
					logging.String(logging.FieldEventType, "watch_scan_complete"),
					logging.Int("count", count),
				)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", cfg.Watch.Folder)
			err = w.Watch(runCtx, cfg.Watch.Folder, handler)
			if runCtx.Err() != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder to watch instead of watch.folder")
	cmd.Flags().BoolVar(&skipApproval, "skip-approval", false, "Upload immediately instead of creating approval requests")
	cmd.Flags().BoolVar(&processExisting, "process-existing", false, "Process files already in the folder before watching")
	return cmd
}

// overrideWatchFolder replaces watch.folder with an expanded --folder value.
func overrideWatchFolder(cfg *config.Config, folder string) error {
	if strings.TrimSpace(folder) == "" {
		return nil
	}
	path, err := config.ExpandPath(strings.TrimSpace(folder))
	if err != nil {
		return services.Wrap(services.ErrValidation, "watch", "folder", "resolve --folder", err)
	}
	cfg.Watch.Folder = path
	return nil
}
