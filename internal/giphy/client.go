// Package giphy resolves /giphy command arguments to GIF URLs via the GIPHY
// translate API.
package giphy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/voxchat/backend/internal/telemetry"
)

const defaultBaseURL = "https://api.giphy.com/v1"

// Client calls the GIPHY REST API with an instrumented HTTP client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GIF is the slice of a GIPHY result the composer needs to build an
// attachment.
type GIF struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

// NewClient creates a GIPHY client from the GIPHY_API_KEY environment
// variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("GIPHY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GIPHY_API_KEY must be set")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: "giphy",
			Timeout:     10 * time.Second,
		}),
	}, nil
}

// Translate resolves a search phrase to a single GIF, the same lookup the
// /giphy command performs.
func (c *Client) Translate(ctx context.Context, phrase string) (*GIF, error) {
	endpoint := fmt.Sprintf("%s/gifs/translate?api_key=%s&s=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(phrase))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build giphy request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("giphy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("giphy returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			ID     string `json:"id"`
			Title  string `json:"title"`
			URL    string `json:"url"`
			Images struct {
				FixedHeight struct {
					URL string `json:"url"`
				} `json:"fixed_height"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode giphy response: %w", err)
	}

	if body.Data.ID == "" {
		return nil, fmt.Errorf("no gif found for %q", phrase)
	}

	return &GIF{
		ID:       body.Data.ID,
		Title:    body.Data.Title,
		URL:      body.Data.URL,
		ImageURL: body.Data.Images.FixedHeight.URL,
	}, nil
}
