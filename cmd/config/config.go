package config

import (
	"github.com/spf13/cobra"

	appConfig "github.com/smartsecurity/cli/internal/config"
	"github.com/smartsecurity/cli/internal/format"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "CLI configuration commands",
	Long: `CLI configuration commands for SmartSecurity CLI.

Values come from the config file, then .env, then SMARTSEC_* environment
variables (e.g. SMARTSEC_SERVER_URL overrides server.url).`,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := format.KeyValues{"config_file": appConfig.Path()}
		for _, key := range appConfig.Keys() {
			values[key] = appConfig.Value(key)
		}
		return format.Print(values)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.SetValue(args[0], args[1]); err != nil {
			return err
		}
		format.PrintSuccess("✓ %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd)
	ConfigCmd.AddCommand(setCmd)
}
