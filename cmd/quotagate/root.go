package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quotagate",
	Short: "Usage metering and quota consumption service",
	Long: `Quotagate meters billable actions against per-account plan quotas.

It is the single authority for "may this account perform another
generation, and record that it did": the generation pipeline asks it
before doing work, the billing consumer tells it when a plan changes.

Quick start:
  quotagate serve       # Start the HTTP service

Management:
  quotagate summary     # Show an account's allowance
  quotagate consume     # Consume one unit (testing/support)
  quotagate refund      # Return one unit to an account
  quotagate set-plan    # Move an account to a new plan`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "quotagate.yaml", "config file path")
}
