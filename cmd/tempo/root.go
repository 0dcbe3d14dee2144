// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Tempo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tempo",
		Short: "Tempo - login session and identity verification service",
		Long: `Tempo manages login sessions for a game-server backend: session
lifecycle, second-factor identity verification, and durable login records.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
