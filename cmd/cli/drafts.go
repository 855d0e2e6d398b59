package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved message drafts",
}

var getDraftCmd = &cobra.Command{
	Use:   "get <channel-id>",
	Short: "Show the saved draft for a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getDraft(args[0])
	},
}

var deleteDraftCmd = &cobra.Command{
	Use:   "delete <channel-id>",
	Short: "Delete the saved draft for a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteDraft(args[0])
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the slash commands the composer understands",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommands()
	},
}

func init() {
	draftsCmd.AddCommand(getDraftCmd)
	draftsCmd.AddCommand(deleteDraftCmd)
}

func draftPath(channelID string) string {
	return "/api/v1/drafts/" + url.PathEscape(channelID)
}

func getDraft(channelID string) error {
	result, body, err := apiRequest("GET", draftPath(channelID), nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	draft, _ := result["draft"].(map[string]interface{})
	if draft == nil {
		fmt.Println("No draft")
		return nil
	}

	text, _ := draft["text"].(string)
	fmt.Printf("Channel: %s\n", channelID)
	fmt.Printf("Text:    %q\n", text)
	if atts, ok := draft["attachments"].([]interface{}); ok {
		fmt.Printf("Attachments: %d\n", len(atts))
	}
	if updated, ok := draft["updated_at"].(string); ok {
		fmt.Printf("Updated: %s\n", updated)
	}
	return nil
}

func deleteDraft(channelID string) error {
	_, body, err := apiRequest("DELETE", draftPath(channelID), nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	fmt.Printf("✓ Draft for %s deleted\n", channelID)
	return nil
}

func listCommands() error {
	result, body, err := apiRequest("GET", "/api/v1/commands", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	cmds, _ := result["commands"].([]interface{})
	for _, raw := range cmds {
		cmd, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := cmd["name"].(string)
		desc, _ := cmd["description"].(string)
		fmt.Printf("/%-10s %s\n", name, desc)
	}
	return nil
}
