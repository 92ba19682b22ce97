package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hieund/repostbot/internal/browser"
	"github.com/hieund/repostbot/internal/config"
	"github.com/hieund/repostbot/internal/store"
)

var accountConfigPath string

// accountCmd groups publish-profile management for operators who prefer the
// CLI over the chat flow.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage publish profiles",
	Long:  `Add, list and remove publish profiles (named session-cookie exports).`,
}

var accountAddCmd = &cobra.Command{
	Use:   "add <name> <cookies.json>",
	Short: "Add a publish profile from a cookie export file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, cookiePath := args[0], args[1]

		raw, err := os.ReadFile(cookiePath)
		if err != nil {
			return fmt.Errorf("failed to read cookie file: %w", err)
		}
		cookies, skipped, err := browser.ParseCookieExport(string(raw))
		if err != nil {
			return fmt.Errorf("invalid cookie export: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.CreateAccount(context.Background(), name, string(raw))
		if err != nil {
			return err
		}

		fmt.Printf("Profile %q created, id %s (%d cookies", name, id, len(cookies))
		if skipped > 0 {
			fmt.Printf(", %d malformed records skipped", skipped)
		}
		fmt.Println(")")
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List publish profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		accounts, err := st.ListAccounts(context.Background())
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No publish profiles.")
			return nil
		}
		for _, a := range accounts {
			fmt.Printf("%s  %s\n", a.ID, a.Name)
		}
		return nil
	},
}

var accountDelCmd = &cobra.Command{
	Use:   "del <id>",
	Short: "Remove a publish profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.DeleteAccount(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("no profile with id %s", args[0])
		}
		fmt.Println("Profile removed.")
		return nil
	},
}

func openStore() (*store.SQLiteStore, error) {
	configPath := accountConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store.Open(cfg.Store.Path)
}

func init() {
	accountCmd.PersistentFlags().StringVarP(&accountConfigPath, "config", "c", "", "path to config file")
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountDelCmd)
}
