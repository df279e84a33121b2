// Package cli wires the tracker commands.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X .../internal/cli.version=1.2.3"
	version = "1.3.0"
	logo    = "\n" +
		"             _            _             _\n" +
		"  _  _ _____| |_ _ _ __ _| |_____ _ _  (_)\n" +
		" | || (_-< -_)  _| '_/ _` | / / -_) '_|  _\n" +
		"  \\_,_/__|___|\\__|_| \\__,_|_\\_\\___|_|   (_)\n"
)

var rootCmd = &cobra.Command{
	Use:   "usertracker",
	Short: "usertracker - checkpointed identity discovery for chat servers",
	Long: color.CyanString(logo) +
		"\nDiscovers users, servers and memberships from channel history and live\nevents, persists each fact exactly once, and resumes backfill after\ninterruption.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(toolsCmd)
}

func printHeader(title string) {
	color.New(color.FgCyan, color.Bold).Println(title)
}
