package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .maid directory, config and catalog",
	Long: `Initialize the .maid directory in the current directory with a default
config.yaml and an empty catalog.db.

Examples:
  maid init          # Initialize in current directory
  maid init --force  # Rewrite config.yaml and empty the catalog`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if .maid already exists")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "get working directory")
	}
	return initWorkspace(cmd, cwd)
}

func initWorkspace(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	configDir := filepath.Join(dir, config.ConfigDirName)
	configFile := filepath.Join(configDir, config.ConfigFileName)

	if _, err := os.Stat(configFile); err == nil {
		if !initForce {
			fmt.Fprintf(out, "Already initialized at %s\n", config.ConfigDirName)
			return nil
		}
		if err := os.Remove(configFile); err != nil {
			return errors.Wrap(err, "removing existing config")
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "checking config path")
	}

	if _, err := config.SaveDefault(dir); err != nil {
		return err
	}

	cat, err := catalog.Open(filepath.Join(configDir, catalog.DefaultFile))
	if err != nil {
		return errors.Wrap(err, "initializing catalog")
	}
	defer cat.Close()
	if initForce {
		if err := cat.Clear(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Initialized maid at %s\n", config.ConfigDirName)
	return nil
}
