// Package cmd provides the CLI commands for Checkout Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Checkout-Gate/checkoutgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "checkout-gate",
	Short: "Checkout Gate - storefront payment backend",
	Long: `Checkout Gate serves a small storefront checkout page and records
completed payment transactions.

It exposes the service catalog, validates prices server-side so the client
can never set its own, and guards every state-changing request with CSRF
tokens, a per-request CSP nonce, and a global rate limit.

Quick start:
  1. Create a config file: checkout-gate.yaml
  2. Run: checkout-gate start

Configuration:
  Config is loaded from checkout-gate.yaml in the current directory,
  $HOME/.checkout-gate/, or /etc/checkout-gate/.

  Environment variables can override config values with the CHECKOUT_GATE_ prefix.
  Example: CHECKOUT_GATE_SERVER_HTTP_ADDR=:9090

Commands:
  start       Start the server
  stop        Stop the running server
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./checkout-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
