// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the EstateHub CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estatehub",
		Short: "EstateHub - property listings API",
		Long: `EstateHub serves the property listing API: accounts with cookie
sessions, profile updates and owner-only listing management.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
