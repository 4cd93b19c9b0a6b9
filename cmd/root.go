package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nash",
	Short: "The Nash scripting language",
	Long:  `Nash runs non-interactive shell-style scripts: programs that spawn commands, pipe data between them, and read and write files.`,

	// `nash script.nash` runs the script without spelling out `run`.
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runScript(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default nash.yaml when present)")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
