package telegram

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

	pkgerrors "github.com/seedslabs/gratibot-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.telegram.org"
	responseBodyReadLimit int64 = 1 << 20

	// ParseModeMarkdown matches the legacy markdown dialect the message
	// catalog is written in.
	ParseModeMarkdown = "Markdown"
)

var errTokenRequired = errors.New("bot api token is required")

// SendMessageParams is the outbound message payload.
type SendMessageParams struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Sender is the outbound surface the dispatch layer depends on.
type Sender interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Client talks to the bot HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the bot API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the bot API client for the given token.
func NewClient(token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		token:      trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SendMessage delivers a text (optionally with markup and keyboard) to a chat.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) error {
	return c.call(ctx, "sendMessage", params)
}

// AnswerCallbackQuery acknowledges an inline-keyboard press so the client UI
// stops its spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]string{"callback_query_id": callbackID})
}

// SetWebhook registers the public webhook URL with the transport. The secret
// is echoed back by the transport on every delivery and may be empty.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]string{"url": url}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload)
}

// DeleteWebhook unregisters the webhook on shutdown.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]string{})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding bot api payload")
	}

	url := fmt.Sprintf("%s/bot%s/%s", strings.TrimSuffix(c.baseURL, "/"), c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building bot api request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalService, err, fmt.Sprintf("bot api %s", method))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalService, err, fmt.Sprintf("reading bot api %s response", method))
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalService, err, fmt.Sprintf("decoding bot api %s response", method))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !decoded.OK {
		return pkgerrors.New(pkgerrors.CodeExternalService,
			fmt.Sprintf("bot api %s failed: status %d: %s", method, resp.StatusCode, decoded.Description))
	}
	return nil
}
