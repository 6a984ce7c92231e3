// Package telegram integrates the agent with the Telegram Bot API.
// It long-polls getUpdates, routes commands and inline-keyboard
// callbacks, and relays plain text into the completion pipeline,
// replying with the serialized envelope.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mau89/Day2SettingsAI/internal/httpkit"
)

const defaultBaseURL = "https://api.telegram.org"

// pollTimeoutSec is the getUpdates long-poll window.
const pollTimeoutSec = 30

// Client is a minimal Bot API client. The methods the agent uses are a
// small, stable subset, so we speak to the HTTP API directly rather than
// pull in a bot framework.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIClient creates a Bot API client. baseURL overrides the endpoint
// for tests; empty means api.telegram.org.
func NewAPIClient(token, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("provider", "telegram"),
		// The long-poll request holds the connection open for the full
		// poll window, so no overall client timeout; context deadlines
		// control cancellation.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(0)),
	}
}

// GetUpdates long-polls for new updates past offset and returns them
// with the next offset to acknowledge.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, int64, error) {
	values := url.Values{}
	values.Set("timeout", strconv.Itoa(pollTimeoutSec))
	if offset > 0 {
		values.Set("offset", strconv.FormatInt(offset, 10))
	}

	endpoint := c.methodURL("getUpdates") + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, offset, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, offset, fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		return nil, offset, fmt.Errorf("getUpdates HTTP %d: %s", resp.StatusCode, strings.TrimSpace(body))
	}

	var payload getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, offset, fmt.Errorf("decode getUpdates: %w", err)
	}
	if !payload.OK {
		return nil, offset, fmt.Errorf("getUpdates failed: %s", payload.Description)
	}

	next := offset
	for _, upd := range payload.Result {
		if upd.UpdateID >= next {
			next = upd.UpdateID + 1
		}
	}
	return payload.Result, next, nil
}

// SendMessage sends text to a chat, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
}

// SendTyping shows the "typing…" indicator while a completion runs.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	return c.call(ctx, "sendChatAction", sendChatActionRequest{
		ChatID: chatID,
		Action: "typing",
	})
}

// AnswerCallbackQuery acknowledges an inline keyboard tap so the client
// stops showing its progress spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackID,
	})
}

// call POSTs a JSON body to a Bot API method and checks the ok flag.
func (c *Client) call(ctx context.Context, method string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt := httpkit.ReadErrorBody(resp.Body, 4096)
		return fmt.Errorf("%s HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(excerpt))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if !result.OK {
		return fmt.Errorf("%s failed: %s", method, result.Description)
	}
	return nil
}

// methodURL builds the bot-token method endpoint. The token is part of
// the URL path per the Bot API convention — never log these URLs.
func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}
