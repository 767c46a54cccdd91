// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/kernel-press/internal/httputil"
	"github.com/pdiddy/kernel-press/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// Claude calls the Claude Messages API and expects a single JSON object
// in the text reply.
type Claude struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewClaude creates a Claude provider from cfg.
func NewClaude(cfg types.OracleConfig) (*Claude, error) {
	cfg = cfg.WithDefaults()
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is not set (use .secrets/anthropic-api-key or ANTHROPIC_API_KEY)")
	}
	return &Claude{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Client:    &http.Client{},
	}, nil
}

// Identity returns "anthropic:<model>".
func (c *Claude) Identity() string { return "anthropic:" + c.Model }

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Ask sends the role as the system prompt and the rendered prompt plus the
// schema example as the user message.
func (c *Claude) Ask(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultMaxTokens
	}
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		System:    req.Role,
		Messages: []claudeMessage{
			{Role: "user", Content: userMessage(req)},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, 0)
	if err != nil {
		return Response{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
		if rejected(resp.StatusCode) {
			return Response{}, &types.OracleError{Kind: types.OracleRejected, Err: err}
		}
		return Response{}, err
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Response{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	metrics := Metrics{
		InputTokens:  cResp.Usage.InputTokens,
		OutputTokens: cResp.Usage.OutputTokens,
		Duration:     time.Since(start),
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		raw := stripFences(block.Text)
		if !json.Valid([]byte(raw)) {
			return Response{Metrics: metrics}, &types.OracleError{
				Kind: types.OracleMalformed,
				Op:   req.Op,
				Err:  fmt.Errorf("reply is not a JSON object: %.120q", raw),
			}
		}
		return Response{Output: json.RawMessage(raw), Metrics: metrics}, nil
	}

	return Response{Metrics: metrics}, &types.OracleError{
		Kind: types.OracleMalformed,
		Op:   req.Op,
		Err:  errors.New("no text content in Claude API response"),
	}
}

// userMessage appends the output contract to the prompt.
func userMessage(req Request) string {
	if req.Schema.Example == "" {
		return req.Prompt
	}
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\nRespond with a single JSON object shaped like this example. Do not include any text outside the JSON object.\n")
	b.WriteString(req.Schema.Example)
	b.WriteString("\n")
	return b.String()
}

// stripFences removes a surrounding ```json fence if the model added one.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// rejected reports whether status is a client error that retrying cannot
// fix. 429 is excluded since it only reaches here once retries run out.
func rejected(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
