package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nashlang/nash/core"
	"github.com/nashlang/nash/core/config"
)

var errorPrefix = color.New(color.FgRed, color.Bold)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a Nash script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func loadConfig(fs afero.Fs) (*config.Configuration, error) {
	if cfgPath != "" {
		return config.Load(fs, cfgPath)
	}
	if config.Exists(fs, config.ConfigurationName) {
		return config.Load(fs, config.ConfigurationName)
	}
	return config.Default(), nil
}

func runScript(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	path := args[0]

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	interp := core.NewInterp(fs,
		core.WithConfig(cfg),
		core.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		core.WithEnviron(os.Environ()),
	)

	code, err := interp.RunScript(context.Background(), string(src))
	if err != nil {
		reportDiagnostic(cmd, err, path)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// reportDiagnostic writes the single diagnostic line, coloring the prefix
// when stderr is a terminal.
func reportDiagnostic(cmd *cobra.Command, err error, path string) {
	line := core.Diagnose(err, path)
	if colored := errorPrefix.Sprint("error:"); len(line) > len("error:") {
		line = colored + line[len("error:"):]
	}
	fmt.Fprintln(cmd.ErrOrStderr(), line)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
