package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "animeblog",
	Short: "Anime catalogue and blog JSON API",
	Long: `animeblog serves a small JSON API for an anime catalogue, user accounts,
blogs and reviews, backed by SQLite, PostgreSQL or process memory.

Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().String("storage", "", "Storage backend: sqlite, postgres or in-memory")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database file")
	rootCmd.Flags().String("addr", "", "HTTP listen address")
	rootCmd.Flags().Bool("seed", false, "Insert demo records before serving")

	rootCmd.AddCommand(serveCmd, usersCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
