package main

import (
	"github.com/spf13/cobra"
)

// defaultConfigPath is used when no config flag or argument is given.
const defaultConfigPath = "./config.toml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repostbot",
	Short: "Repostbot - Scheduled video republishing bot",
	Long: `Repostbot republishes short videos to a web video platform on a
schedule. Jobs are created through a Telegram bot, media is fetched through
a resolver service, and publishing is done by driving the platform's web UI
with an automated browser.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(accountCmd)
}
