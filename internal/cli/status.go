package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/config"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/discoverylog"
	"github.com/Nooneyouknow123/User-id-scraper-for-discord-servers/internal/store"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("usertracker %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, database and discovery log state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printHeader("usertracker status")
		fmt.Printf("  data dir:      %s\n", cfg.Paths.DataDir)
		fmt.Printf("  gateway:       %s\n", cfg.Gateway.BaseURL)
		fmt.Printf("  event listen:  %s\n", cfg.Gateway.ListenAddr)

		if _, err := os.Stat(cfg.Paths.DatabaseFile); err != nil {
			fmt.Printf("  database:      %s\n", color.YellowString("not created yet"))
		} else {
			st, err := store.Open(cfg.Paths.DatabaseFile)
			if err != nil {
				return err
			}
			defer st.Close()
			n, err := st.CountIdentities()
			if err != nil {
				return err
			}
			fmt.Printf("  database:      %s\n", cfg.Paths.DatabaseFile)
			fmt.Printf("  tracked users: %s\n", color.GreenString("%d", n))
		}

		entries, err := discoverylog.New(cfg.Paths.DiscoveryLog).Entries()
		if err != nil {
			return err
		}
		fmt.Printf("  discoveries:   %d\n", len(entries))
		return nil
	},
}
