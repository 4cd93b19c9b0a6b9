package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nashlang/nash/core"
)

var checkCmd = &cobra.Command{
	Use:   "check SCRIPT",
	Short: "Parse and validate a script without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()
		path := args[0]
		src, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		if err := core.NewInterp(fs).CheckScript(string(src)); err != nil {
			reportDiagnostic(cmd, err, path)
			return fmt.Errorf("%s has errors", path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
