// Package cmd implements the osync CLI command.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/eykd/outlinesync/internal/collectionprompt"
	"github.com/eykd/outlinesync/internal/config"
	"github.com/eykd/outlinesync/internal/orchestrator"
	"github.com/eykd/outlinesync/internal/outlineapi"
	"github.com/eykd/outlinesync/internal/syncfs"
)

// defaultConfigPath is where the CLI reads its run configuration from
// absent an override.
const defaultConfigPath = "init/config.yaml"

// configEnvVar overrides defaultConfigPath when --config is not given
// explicitly on the command line.
const configEnvVar = "OUTLINESYNC_CONFIG"

// runResult is the shape printed in --json mode, mirroring the
// version+changed+diagnostics summary style of the engine's OpResult-like
// command output.
type runResult struct {
	Version   string            `json:"version"`
	Halted    bool              `json:"halted"`
	Pulled    int               `json:"pulled"`
	Pushed    int               `json:"pushed"`
	Conflicts []conflictSummary `json:"conflicts,omitempty"`
}

type conflictSummary struct {
	Kind       string `json:"kind"`
	Path       string `json:"path"`
	ID         string `json:"id"`
	Suggestion string `json:"suggestion"`
	LocalData  string `json:"local_data,omitempty"`
	RemoteData string `json:"remote_data,omitempty"`
}

// NewRootCmd creates the root osync command.
func NewRootCmd() *cobra.Command {
	var (
		configPath   string
		collectionID string
		dryRun       bool
		jsonOutput   bool
	)

	root := &cobra.Command{
		Use:           "osync",
		Short:         "osync - reconciles a local markdown tree with a remote Outline collection",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedPath := configPath
			if !cmd.Flags().Changed("config") {
				if envPath := os.Getenv(configEnvVar); envPath != "" {
					resolvedPath = envPath
				}
			}
			return runSync(cmd, resolvedPath, collectionID, dryRun, jsonOutput)
		},
	}

	root.Flags().StringVar(&configPath, "config", defaultConfigPath, "path to the run configuration file (overridden by "+configEnvVar+" when --config is not set)")
	root.Flags().StringVar(&collectionID, "collection", "", "remote collection id to sync (overrides config and skips the picker)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "print which collection and sync root would be synced, then exit without running the sync")
	root.Flags().BoolVar(&jsonOutput, "json", false, "print the run summary as JSON instead of human-readable text")

	return root
}

func runSync(cmd *cobra.Command, configPath, collectionFlag string, dryRun, jsonOutput bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return emitErrorAndFail(cmd, jsonOutput, err)
	}
	if collectionFlag != "" {
		cfg.CollectionID = collectionFlag
	}

	gw := outlineapi.New(cfg.APIBaseURL, cfg.APIToken)

	if cfg.CollectionID == "" {
		collections, err := gw.ListCollections(cmd.Context())
		if err != nil {
			return emitErrorAndFail(cmd, jsonOutput, err)
		}
		if len(collections) > 1 && !isInteractiveTerminal() {
			return emitErrorAndFail(cmd, jsonOutput, fmt.Errorf("multiple collections available and no --collection flag or collection_id given; refusing to prompt on a non-interactive terminal"))
		}
		chosen, err := collectionprompt.Select(collections)
		if err != nil {
			return emitErrorAndFail(cmd, jsonOutput, err)
		}
		cfg.CollectionID = chosen
	}

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "dry-run: would sync collection %s into %s\n", sanitizePath(cfg.CollectionID), sanitizePath(cfg.SyncRoot))
		return nil
	}

	lock := syncfs.New(cfg.SyncRoot)
	if err := lock.Acquire(cmd.Context()); err != nil {
		return emitErrorAndFail(cmd, jsonOutput, err)
	}
	defer lock.Release()

	o := &orchestrator.Orchestrator{
		Root:         cfg.SyncRoot,
		CollectionID: cfg.CollectionID,
		Gateway:      gw,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
		},
	}

	report, err := o.Run(cmd.Context())
	if err != nil {
		return emitErrorAndFail(cmd, jsonOutput, err)
	}

	printReport(cmd, jsonOutput, report)
	return nil
}

func printReport(cmd *cobra.Command, jsonOutput bool, report orchestrator.Report) {
	if jsonOutput {
		result := runResult{Version: "1", Halted: report.Halted, Pulled: report.Pulled, Pushed: report.Pushed}
		for _, c := range report.Conflicts {
			result.Conflicts = append(result.Conflicts, conflictSummary{
				Kind:       string(c.Kind),
				Path:       c.Path,
				ID:         c.ID,
				Suggestion: c.Suggestion,
				LocalData:  c.LocalData,
				RemoteData: c.RemoteData,
			})
		}
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		return
	}

	if report.Halted {
		fmt.Fprintf(cmd.OutOrStdout(), "sync halted: %d conflict(s) require manual review\n", len(report.Conflicts))
		for _, c := range report.Conflicts {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s: %s\n", c.Kind, sanitizePath(c.Path), c.Suggestion)
			fmt.Fprintf(cmd.OutOrStdout(), "    --- local ---\n%s\n", indent(c.LocalData))
			fmt.Fprintf(cmd.OutOrStdout(), "    --- remote ---\n%s\n", indent(c.RemoteData))
		}
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sync complete: pulled %d, pushed %d\n", report.Pulled, report.Pushed)
}

// isInteractiveTerminal reports whether stdin is attached to a terminal a
// huh form can actually prompt on, so a CI run or piped invocation fails
// fast instead of hanging on an interactive select it can never answer.
func isInteractiveTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// indent prefixes every line of s with two spaces, for nesting a conflict's
// local/remote body under its summary line in the human-readable report.
// Empty input (e.g. a body that failed to read) renders as "(unavailable)".
func indent(s string) string {
	if s == "" {
		return "    (unavailable)"
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

// emitErrorAndFail writes a diagnostic in the requested format and
// returns a non-nil error so the caller exits with a non-zero code. A
// *model.ConflictDetected never reaches this path: the orchestrator
// reports it as a halted Report, not an error.
func emitErrorAndFail(cmd *cobra.Command, jsonOutput bool, origErr error) error {
	if jsonOutput {
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(runResult{Version: "1"})
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", origErr)
	return fmt.Errorf("sync failed: %w", origErr)
}
