package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/readdash"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the persisted API URL",
	Long:  `View and update the statistics API URL stored in the settings database.`,
}

var configGetURLCmd = &cobra.Command{
	Use:   "get-url",
	Short: "Show the persisted API URL",
	Args:  cobra.NoArgs,
	RunE:  runConfigGetURL,
}

var configSetURLCmd = &cobra.Command{
	Use:   "set-url <url>",
	Short: "Persist the API URL without fetching",
	Long: `Persist the statistics API URL without fetching.

The URL is stored verbatim; /api/stats is appended when fetching.

Examples:
  readdash config set-url https://stats.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetURL,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetURLCmd)
	configCmd.AddCommand(configSetURLCmd)
}

func runConfigGetURL(cmd *cobra.Command, args []string) error {
	store, err := readdash.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	defer store.Close()

	url, ok, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok || url == "" {
		fmt.Fprintln(out, "No API URL configured")
		fmt.Fprintln(out, "\nUse 'readdash config set-url <url>' to set one")
		return nil
	}
	fmt.Fprintln(out, url)
	return nil
}

func runConfigSetURL(cmd *cobra.Command, args []string) error {
	store, err := readdash.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}
	defer store.Close()

	if err := store.Save(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API URL saved: %s\n", args[0])
	return nil
}
