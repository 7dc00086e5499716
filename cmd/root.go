package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartsecurity/cli/cmd/auth"
	"github.com/smartsecurity/cli/cmd/config"
	"github.com/smartsecurity/cli/cmd/devices"
	"github.com/smartsecurity/cli/cmd/events"
	appConfig "github.com/smartsecurity/cli/internal/config"
	"github.com/smartsecurity/cli/internal/format"
)

var (
	cfgFile string
	debug   bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smartsec",
	Short: "SmartSecurity CLI - manage your motion sensors and alarms",
	Long: `SmartSecurity CLI gives command-line access to your home-security account.

Sign in, list and arm your ESP32 sensors, browse the event history and
watch live motion alarms as they happen.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Initialize(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		if debug {
			appConfig.SetDebug(true)
		}

		if output != "" {
			if _, err := format.GetFormatter(output, false); err != nil {
				return err
			}
			appConfig.SetOutputFormat(output)
		}

		return nil
	},
}

// Execute runs the command tree with ctx. It is called by main.main().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.smartsec.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (table, text, json, json-compact, yaml)")

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(devices.DevicesCmd)
	rootCmd.AddCommand(events.EventsCmd)
	rootCmd.AddCommand(config.ConfigCmd)
}
