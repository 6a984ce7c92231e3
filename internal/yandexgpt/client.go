// Package yandexgpt implements the completion pipeline: build a prompt,
// call the YandexGPT foundation-models endpoint, and normalize whatever
// comes back — clean JSON, JSON buried in prose, malformed text, HTTP
// errors, timeouts — into a response envelope. No code path returns a
// raw error to the caller; every outcome is an envelope.
package yandexgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mau89/Day2SettingsAI/internal/config"
	"github.com/mau89/Day2SettingsAI/internal/envelope"
	"github.com/mau89/Day2SettingsAI/internal/extract"
	"github.com/mau89/Day2SettingsAI/internal/httpkit"
)

const (
	defaultCompletionURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

	// requestTimeout bounds one completion call end to end. No retry is
	// performed; a timeout surfaces immediately as an error envelope.
	requestTimeout = 30 * time.Second

	// errorDetailLimit bounds raw error text embedded in envelopes.
	errorDetailLimit = 200
)

// Fixed decoding parameters (streaming is explicitly disabled).
const (
	completionTemperature = 0.3
	completionMaxTokens   = 2000
)

// Client calls the YandexGPT completion API and normalizes every outcome
// into an envelope. It holds only read-only configuration and a shared
// http.Client, so it is safe for concurrent use.
type Client struct {
	apiKey        string
	folderID      string
	completionURL string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a completion client. Configuration is immutable and
// threaded in here — the client never reads ambient global state.
func NewClient(cfg config.YandexConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	url := cfg.CompletionURL
	if url == "" {
		url = defaultCompletionURL
	}
	return &Client{
		apiKey:        cfg.APIKey,
		folderID:      cfg.FolderID,
		completionURL: url,
		logger:        logger.With("provider", "yandexgpt"),
		httpClient:    httpkit.NewClient(httpkit.WithTimeout(requestTimeout)),
	}
}

// Wire types for the completion endpoint.

type completionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []chatMessage     `json:"messages"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type chatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message chatMessage `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

// failureKind classifies the outcome of one transport call. The
// orchestrator pattern-matches on it instead of inspecting raw errors.
type failureKind int

const (
	failureNone failureKind = iota
	failureTimeout
	failureConnection
	failureStatus
	failureInternal
)

// callResult is the explicit result of one completion call: either the
// model's text (failureNone) or a classified failure with detail.
type callResult struct {
	text   string
	kind   failureKind
	status int
	detail string
}

// GenerateResponse runs one end-to-end completion: prompt, call,
// normalize. It always returns an envelope — transport failures become
// error envelopes, unparseable model output becomes the fixed fallback
// info envelope, anything unexpected becomes a generic error envelope.
func (c *Client) GenerateResponse(ctx context.Context, userText string) *envelope.Envelope {
	log := c.logger.With("request_id", uuid.NewString())
	log.Debug("generating response", "input_len", len(userText))

	res := c.complete(ctx, log, BuildPrompt(userText))

	switch res.kind {
	case failureTimeout:
		return c.must(envelope.Error(
			"⏰ Timed out waiting for a response from YandexGPT",
			envelope.WithErrorDetails("timeout calling the completion API"),
			envelope.WithSuggestions("Try again", "Check your internet connection"),
		))

	case failureConnection:
		return c.must(envelope.Error(
			"❌ Connection to YandexGPT failed",
			envelope.WithErrorDetails(truncate(res.detail, errorDetailLimit)),
			envelope.WithSuggestions("Check your internet connection", "Try again later"),
		))

	case failureStatus:
		return c.must(envelope.Error(
			"❌ YandexGPT API error",
			envelope.WithErrorDetails(fmt.Sprintf("HTTP %d: %s", res.status, truncate(res.detail, errorDetailLimit))),
			envelope.WithSuggestions("Check your internet connection", "Try again later"),
		))

	case failureInternal:
		return c.must(envelope.Error(
			"❌ Unexpected error talking to YandexGPT",
			envelope.WithErrorDetails(truncate(res.detail, errorDetailLimit)),
			envelope.WithSuggestions("Try restarting the bot", "Contact the administrator"),
		))
	}

	return c.normalize(log, res.text)
}

// normalize turns raw model text into an envelope: strict direct parse
// first, then extraction from surrounding prose, then the fixed fallback.
func (c *Client) normalize(log *slog.Logger, text string) *envelope.Envelope {
	log.Log(context.Background(), config.LevelTrace, "model output", "text", text)

	if env, err := envelope.Decode([]byte(strings.TrimSpace(text))); err == nil {
		log.Debug("direct envelope parse succeeded", "type", string(env.Type))
		return env
	}

	if obj, ok := extract.Object(text); ok {
		env, err := envelope.FromMap(obj)
		if err == nil {
			log.Debug("envelope recovered by extraction", "type", string(env.Type))
			return env
		}
		log.Debug("extracted object failed envelope validation", "error", err)
	}

	// Deterministic fallback: the same envelope regardless of what the
	// unparseable text contained. Raw model prose is deliberately
	// discarded rather than wrapped.
	log.Debug("model output unparseable, returning fallback envelope")
	return c.must(envelope.Info(
		"The request does not contain enough information to solve the problem",
		envelope.WithData(map[string]any{
			"category": "unknown",
			"solution": "A more detailed description of the problem is needed",
			"steps": []string{
				"Provide a detailed description of the problem",
				"Include the symptoms and the context",
			},
			"additional_info": "Helping properly requires more specific information about the system and the problem",
		}),
		envelope.WithActions("Clarify your request", "Describe the problem in detail"),
		envelope.WithConfidence(0.95),
	))
}

// complete performs the HTTP call and classifies its outcome. It never
// returns an error; failures come back as a classified callResult.
func (c *Client) complete(ctx context.Context, log *slog.Logger, prompt string) callResult {
	req := completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/yandexgpt", c.folderID),
		CompletionOptions: completionOptions{
			Stream:      false,
			Temperature: completionTemperature,
			MaxTokens:   completionMaxTokens,
		},
		Messages: []chatMessage{{Role: "user", Text: prompt}},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return callResult{kind: failureInternal, detail: fmt.Sprintf("marshal request: %v", err)}
	}
	log.Log(ctx, config.LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionURL, bytes.NewReader(jsonData))
	if err != nil {
		return callResult{kind: failureInternal, detail: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Api-Key "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			log.Warn("completion request timed out")
			return callResult{kind: failureTimeout, detail: err.Error()}
		}
		log.Warn("completion request failed", "error", err)
		return callResult{kind: failureConnection, detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, errorDetailLimit)
		log.Error("completion API error", "status", resp.StatusCode, "body", body)
		return callResult{kind: failureStatus, status: resp.StatusCode, detail: body}
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return callResult{kind: failureInternal, detail: fmt.Sprintf("decode response: %v", err)}
	}

	// Nested path result.alternatives[0].message.text; any missing
	// segment yields "".
	var text string
	if len(cr.Result.Alternatives) > 0 {
		text = cr.Result.Alternatives[0].Message.Text
	}
	return callResult{kind: failureNone, text: text}
}

// TestConnection probes the completion endpoint with a canned greeting.
// Error envelopes pass through unchanged; any non-error reply collapses
// into a fixed success envelope — only error-free-ness is being probed,
// the model's actual words are discarded.
func (c *Client) TestConnection(ctx context.Context) *envelope.Envelope {
	resp := c.GenerateResponse(ctx, "Hi! This is a connection test.")
	if resp.Type == envelope.KindError {
		return resp
	}
	return c.must(envelope.Success(
		"✅ YandexGPT connection is working!",
		envelope.WithConfidence(1.0),
	))
}

// must unwraps envelope construction from fixed, known-valid inputs.
// A construction error here is a programming bug; degrade to a minimal
// error envelope rather than panic, preserving the everything-returns-
// an-envelope contract.
func (c *Client) must(e *envelope.Envelope, err error) *envelope.Envelope {
	if err != nil {
		c.logger.Error("envelope construction failed", "error", err)
		fallback, _ := envelope.Error("Internal error while constructing the response")
		return fallback
	}
	return e
}

// isTimeout reports whether err represents an expired deadline rather
// than a connection-level failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncate bounds s to limit runes, so raw error text never bloats an
// envelope.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
