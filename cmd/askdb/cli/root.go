package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	appVersion string // set in Execute, reported to the tool server
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "askdb",
		Short: "Ask your database questions in plain language",
		Long: `askdb translates natural-language questions into read-only SQL with a local
language model, executes the SQL through an MCP tool server, and prints a
compact answer. The database is never touched directly: every statement goes
through the tool server's query capability, and anything that is not a single
SELECT is rejected before it leaves the process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./askdb.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "echo prompts, raw model output, and extracted SQL")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newReplCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("askdb")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.askdb")
	}

	viper.SetEnvPrefix("ASKDB")
	// Nested keys use dots; env vars can't, so model.name reads
	// ASKDB_MODEL_NAME.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
