package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gridauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gridauth",
		Short: "Gridauth - user registration and password-reset service",
		Long: `Gridauth is an HTTP backend for user registration, login, and
token-based password resets, backed by MongoDB.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitDBCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
