package bedrockrt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/user/bedrockchat/pkg/agent"
)

// Config holds connection settings for an agent-runtime endpoint.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client implements the agent.Provider interface against a Bedrock
// agent-runtime style REST endpoint.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a new agent-runtime client with the given configuration.
func New(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			// Agent turns can orchestrate several model calls; allow for it.
			Timeout: 120 * time.Second,
		},
	}
}

// invokeRequest is the request body for an invoke call.
type invokeRequest struct {
	InputText   string `json:"inputText"`
	EnableTrace bool   `json:"enableTrace"`
}

// invokeResponse is the collected response body for an invoke call.
type invokeResponse struct {
	OutputText string           `json:"outputText"`
	Citations  []agent.Citation `json:"citations"`
	Trace      agent.RawTrace   `json:"trace"`
}

// InvokeAgent submits a prompt for the given session and returns the
// agent's final response with citations and trace attached.
func (c *Client) InvokeAgent(ctx context.Context, agentID, agentAliasID, sessionID, prompt string) (*agent.Response, error) {
	body, err := json.Marshal(invokeRequest{
		InputText:   prompt,
		EnableTrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/agents/%s/agentAliases/%s/sessions/%s/text",
		c.config.BaseURL,
		url.PathEscape(agentID),
		url.PathEscape(agentAliasID),
		url.PathEscape(sessionID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var invokeResp invokeResponse
	if err := json.Unmarshal(respBody, &invokeResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &agent.Response{
		OutputText: invokeResp.OutputText,
		Citations:  invokeResp.Citations,
		Trace:      invokeResp.Trace,
	}, nil
}
