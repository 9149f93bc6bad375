// Package whatsapp implements internal/channel.Sender against the
// WhatsApp Cloud API. Ported directly from
// original_source/services/whatsapp_service.py's send_whatsapp_message:
// a single POST to https://graph.facebook.com/{version}/{phone_id}/messages
// with a bearer token, no retry or queueing: a failed send is returned to
// the caller and is not retried.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultGraphVersion = "v17.0"

// Options configures a Client. PhoneNumberID and AccessToken are this
// engine's own WhatsApp Business number; spec.md models one configured
// WhatsApp number per tenant rather than original_source's per-business
// credential override table, so a Client is constructed once per tenant
// rather than looked up per send.
type Options struct {
	PhoneNumberID string
	AccessToken   string
	GraphVersion  string // defaults to "v17.0"
	HTTPClient    *http.Client
}

// Client sends outbound WhatsApp messages for a single phone number.
type Client struct {
	phoneNumberID string
	accessToken   string
	baseURL       string
	http          *http.Client
}

// New builds a Client. A nil HTTPClient defaults to http.DefaultClient.
func New(opts Options) *Client {
	version := opts.GraphVersion
	if version == "" {
		version = defaultGraphVersion
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		phoneNumberID: opts.PhoneNumberID,
		accessToken:   opts.AccessToken,
		baseURL:       fmt.Sprintf("https://graph.facebook.com/%s/%s/messages", version, opts.PhoneNumberID),
		http:          httpClient,
	}
}

type sendRequest struct {
	MessagingProduct string  `json:"messaging_product"`
	To               string  `json:"to"`
	Text             textObj `json:"text"`
}

type textObj struct {
	Body string `json:"body"`
}

// Send implements channel.Sender. tenantID is accepted for interface
// conformance but unused: this Client is already scoped to one tenant's
// phone number by construction.
func (c *Client) Send(ctx context.Context, tenantID, target, body string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               target,
		Text:             textObj{Body: body},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp: send failed, status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
