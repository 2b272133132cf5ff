// Package cli implements the forgeport command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgeport/forgeport/internal/config"
	"github.com/forgeport/forgeport/internal/dump"
	"github.com/forgeport/forgeport/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flags.
var (
	dumpFile string
	authFile string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "forgeport",
	Short: "Migrate a workspace export into a Git forge",
	Long: `Forgeport reads a project-tracking workspace export file and migrates
its contents: wiki pages become git commits replaying the full edit
history, tickets and milestones become GitHub issues and milestones.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&dumpFile, "dumpfile", "f", "dump.js", "Path to the workspace export file")
	rootCmd.PersistentFlags().StringVarP(
		&authFile, "auth", "a", "", "Path to the auth config file (default ~/.forgeport/auth.toml)")
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "Enable verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSnapshot reads the export file named by --dumpfile into memory.
func loadSnapshot() (*dump.Snapshot, error) {
	f, err := os.Open(dumpFile)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}
	defer f.Close()

	snap, err := dump.Load(f)
	if err != nil {
		return nil, fmt.Errorf("parse dump file %s: %w", dumpFile, err)
	}
	return snap, nil
}

// loadConfig reads the auth config named by --auth, falling back to the
// default location. A missing file yields an empty config.
func loadConfig() (*config.Config, string, error) {
	path := authFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
