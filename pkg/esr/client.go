// Package esr talks to the external transaction-signing service. The service
// builds an unsigned acknowledge action and returns wallet artifacts: a deep
// link (esr) and an inline QR payload encoding the same request.
package esr

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
	defaultBaseURL              = "https://api-esr.hypha.earth"
	defaultTimeout              = 10 * time.Second
	actionName                  = "acknowledge"
	responseBodyReadLimit int64 = 1 << 20
)

var errAccountRequired = errors.New("signing account is required")

// Client issues signing requests over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	account    string
	actor      string
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

// WithBaseURL overrides the signing service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds the signing round trip. A timeout is treated exactly
// like a non-success response by callers.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a signing client for the given contract account and actor.
func NewClient(account, actor string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(account)
	if trimmed == "" {
		return nil, errAccountRequired
	}

	client := &Client{
		account:    trimmed,
		actor:      actor,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Artifact is the rendered signing outcome.
type Artifact struct {
	QR       string `json:"qr"`
	DeepLink string `json:"esr"`
}

type actionRequest struct {
	Actions []action `json:"actions"`
}

type action struct {
	Account       string          `json:"account"`
	Name          string          `json:"name"`
	Authorization []authorization `json:"authorization"`
	Data          actionData      `json:"data"`
}

type authorization struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

type actionData struct {
	From string `json:"from"`
	To   string `json:"to"`
	Memo string `json:"memo"`
}

// Acknowledge requests a signable gratitude transaction addressed to the
// recipient's account handle.
func (c *Client) Acknowledge(ctx context.Context, toAccount, memo string) (*Artifact, error) {
	payload := actionRequest{
		Actions: []action{{
			Account: c.account,
			Name:    actionName,
			Authorization: []authorization{{
				Actor:      c.actor,
				Permission: "............2",
			}},
			Data: actionData{
				From: c.actor,
				To:   toAccount,
				Memo: memo,
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding signing payload")
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/qr"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building signing request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "signing service unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "reading signing response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeExternalService,
			fmt.Sprintf("signing service returned status %d", resp.StatusCode))
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalService, err, "decoding signing response")
	}
	if artifact.QR == "" || artifact.DeepLink == "" {
		return nil, pkgerrors.New(pkgerrors.CodeExternalService, "signing response missing qr or esr payload")
	}
	return &artifact, nil
}
