package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose and send messages",
	Long:  "Commands for composing messages: open a session, set text, stage attachments and send",
}

var sendCmd = &cobra.Command{
	Use:   "send <channel-id> <text>",
	Short: "Compose and send a text message in one step",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendMessage(args[0], strings.Join(args[1:], " "))
	},
}

var showCmd = &cobra.Command{
	Use:   "show <channel-id>",
	Short: "Show the current composer state for a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showComposer(args[0])
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard <channel-id>",
	Short: "Close the composer session and throw away its draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return discardComposer(args[0])
	},
}

func init() {
	composeCmd.AddCommand(sendCmd)
	composeCmd.AddCommand(showCmd)
	composeCmd.AddCommand(discardCmd)
}

// apiRequest performs an authenticated JSON request and returns the decoded
// body, failing on non-2xx status codes.
func apiRequest(method, path string, payload interface{}) (map[string]interface{}, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, apiURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+authToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		_ = json.Unmarshal(body, &errResp)
		if msg, ok := errResp["message"].(string); ok {
			return nil, nil, fmt.Errorf("API error: %s", msg)
		}
		return nil, nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result, body, nil
}

func composerPath(channelID string) string {
	return "/api/v1/channels/" + url.PathEscape(channelID) + "/composer"
}

func sendMessage(channelID, text string) error {
	if _, _, err := apiRequest("POST", composerPath(channelID), map[string]interface{}{}); err != nil {
		return err
	}
	if _, _, err := apiRequest("PUT", composerPath(channelID)+"/text", map[string]interface{}{
		"text": text,
	}); err != nil {
		return err
	}

	result, body, err := apiRequest("POST", composerPath(channelID)+"/send", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	if sent, ok := result["sent"].(bool); ok && sent {
		fmt.Printf("✓ Message sent to %s\n", channelID)
	} else {
		fmt.Println("Message not sent")
	}
	return nil
}

func showComposer(channelID string) error {
	result, body, err := apiRequest("GET", composerPath(channelID), nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	session, _ := result["session"].(map[string]interface{})
	if session == nil {
		fmt.Println("No composer session")
		return nil
	}

	text, _ := session["text"].(string)
	fmt.Printf("Channel:     %s\n", channelID)
	fmt.Printf("Text:        %q\n", text)
	if atts, ok := session["attachments"].([]interface{}); ok {
		fmt.Printf("Attachments: %d\n", len(atts))
	}
	if enabled, ok := session["send_button_enabled"].(bool); ok {
		fmt.Printf("Sendable:    %v\n", enabled)
	}
	return nil
}

func discardComposer(channelID string) error {
	_, body, err := apiRequest("DELETE", composerPath(channelID)+"?discard=true", nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}
	fmt.Printf("✓ Composer session for %s discarded\n", channelID)
	return nil
}
