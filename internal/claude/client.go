// Package claude hosts child sessions on the Anthropic API.
package claude

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// defaultModel is used when ClientConfig leaves Model empty.
const defaultModel = anthropic.ModelClaudeSonnet4_20250514

// Client wraps the Anthropic SDK client with token tracking.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	tracker *TokenTracker
}

// ClientConfig configures a Client. Zero value plus ANTHROPIC_API_KEY in
// the environment is enough for the direct API.
type ClientConfig struct {
	// Model selects the Claude model; empty means defaultModel.
	Model anthropic.Model
	// APIKey overrides the ANTHROPIC_API_KEY env var for the direct API.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the
	// direct API. Model names are rewritten to inference profile IDs.
	UseAWSBedrock bool
	// AWSRegion pins the Bedrock region (otherwise the AWS default chain).
	AWSRegion string
	// AWSProfile selects a shared-config profile for Bedrock credentials.
	AWSProfile string
}

// NewClient creates a Messages API client for the configured backend.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption
	if cfg.UseAWSBedrock {
		opts = append(opts, bedrockOption(cfg))
	} else {
		keyOpt, err := apiKeyOption(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, keyOpt)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if cfg.UseAWSBedrock {
		model = bedrockProfile(model)
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		tracker: NewTokenTracker(),
	}, nil
}

// bedrockOption builds the Bedrock request option, honoring the region and
// shared-config profile when set.
func bedrockOption(cfg ClientConfig) option.RequestOption {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSProfile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
	}
	return bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...)
}

// apiKeyOption resolves the direct-API key from config or environment.
func apiKeyOption(cfg ClientConfig) (option.RequestOption, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	return option.WithAPIKey(key), nil
}

// bedrockProfiles maps model names to Bedrock cross-region inference
// profile IDs (us.anthropic.{model}-v1:0).
var bedrockProfiles = map[anthropic.Model]anthropic.Model{
	anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
	anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
	anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
	anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
}

// bedrockProfile rewrites a model name to its inference profile ID.
// Unknown names pass through so custom profile IDs keep working.
func bedrockProfile(model anthropic.Model) anthropic.Model {
	if profile, ok := bedrockProfiles[model]; ok {
		return profile
	}
	return model
}

// CreateMessage makes one Messages API call and records token usage.
func (c *Client) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Approximate Sonnet pricing in USD per million tokens.
const (
	inputCostPerMTok  = 3.0
	outputCostPerMTok = 15.0
)

// TokenTracker accumulates token usage across the API calls of a run.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records the usage of one API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns accumulated input and output token counts.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears the tracker for a new run.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok = 0
	t.outputTok = 0
	t.calls = 0
}

// Cost estimates the run's cost in USD at approximate current pricing.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.inputTok)/1e6*inputCostPerMTok + float64(t.outputTok)/1e6*outputCostPerMTok
}
