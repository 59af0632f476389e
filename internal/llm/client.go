package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client defines the interface for the SQL-generating model collaborator.
type Client interface {
	// GenerateSQL turns a fully assembled prompt into a candidate SQL string,
	// already stripped of markdown fences and surrounding whitespace.
	GenerateSQL(ctx context.Context, prompt string) (string, error)

	// Verify checks that the configured API key is functional.
	Verify(ctx context.Context) error

	// CurrentModel returns the model name that served the last successful
	// generation, or the head of the fallback chain before any call.
	CurrentModel() string

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey string
	// Model is the preferred model. Empty walks the default catalog chain.
	Model string
}

// completionFunc issues one completion against one named model. It is a
// field so tests can substitute a fake without a network round trip.
type completionFunc func(ctx context.Context, model, prompt string) (string, error)

// geminiClient implements Client using the Google Gemini API.
type geminiClient struct {
	client   *genai.Client
	complete completionFunc

	mu      sync.Mutex
	chain   []string
	current int
}

// Connect creates a Gemini client, verifies the API key with a probe call,
// and resolves the model fallback chain.
func Connect(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &geminiClient{
		client: client,
		chain:  Chain(cfg.Model),
	}
	c.complete = c.generate

	if err := c.Verify(ctx); err != nil {
		client.Close()
		return nil, err
	}

	if cfg.Model == "" {
		zap.S().Infof("model not specified, starting from %s", c.CurrentModel())
	}
	return c, nil
}

// Close cleans up the underlying Gemini client.
func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Verify checks the API key by listing models, the cheapest authenticated
// call the API offers.
func (c *geminiClient) Verify(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}

	modelIterator := c.client.ListModels(ctx)
	_, err := modelIterator.Next()
	if err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// CurrentModel returns the model currently at the head of the chain.
func (c *geminiClient) CurrentModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < len(c.chain) {
		return c.chain[c.current]
	}
	return ""
}

// GenerateSQL walks the model chain starting from the last model that
// worked. A model that reports itself unavailable (decommissioned, not
// found for this account) advances the chain and the same prompt is
// retried; any other failure is returned immediately. A success pins the
// chain position for the rest of the session.
func (c *geminiClient) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	start := c.current
	chain := c.chain
	c.mu.Unlock()

	for i := start; i < len(chain); i++ {
		model := chain[i]
		text, err := c.complete(ctx, model, prompt)
		if err == nil {
			c.mu.Lock()
			c.current = i
			c.mu.Unlock()
			return CleanSQL(text), nil
		}
		if isModelUnavailable(err) {
			zap.S().Warnf("model %s unavailable, trying next in chain: %v", model, err)
			continue
		}
		return "", fmt.Errorf("model %s generation failed: %w", model, err)
	}

	return "", fmt.Errorf("all configured models failed or are unavailable")
}

// generate issues a single completion with temperature pinned to zero so
// identical prompts give stable SQL.
func (c *geminiClient) generate(ctx context.Context, modelName, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstTextPart(resp)
}

// firstTextPart extracts the first text part from a Gemini response.
func firstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s", finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}

var fenceRe = regexp.MustCompile("(?i)```(?:sql)?")

// CleanSQL strips markdown code fences and surrounding whitespace from a
// model response, leaving the bare statement.
func CleanSQL(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// isModelUnavailable reports whether an error means "this model cannot
// serve this account" rather than "this request failed". Only the former
// advances the fallback chain.
func isModelUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound, codes.FailedPrecondition, codes.Unimplemented:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "decommissioned") ||
		strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "not found")
}
