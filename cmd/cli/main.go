package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    string = "http://localhost:3001"
	output    string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "voxchat",
	Short: "VoxChat CLI - Compose and send messages from the terminal",
	Long: `VoxChat CLI provides command-line access to your VoxChat account.
Open composer sessions, stage attachments, manage drafts and send messages.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if authToken == "" {
			authToken = os.Getenv("VOXCHAT_TOKEN")
		}
		if authToken == "" && cmd.Name() != "help" && cmd.Parent() != nil {
			fmt.Fprintf(os.Stderr, "Error: VOXCHAT_TOKEN environment variable not set\n")
			fmt.Fprintf(os.Stderr, "Please set your auth token: export VOXCHAT_TOKEN=<your-token>\n")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to VOXCHAT_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(commandsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
