// Package bridgeclient is a small helper library for platform brokers
// talking to the bridge API: request signing for enterprise-tier keys and
// webhook signature verification on the receiving side.
package bridgeclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"daonbridge/internal/infra/crypto"
	"daonbridge/internal/infra/webhooks"
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// PrivateKey, when set, signs every request body. Enterprise-tier
	// brokers must set it.
	PrivateKey ed25519.PrivateKey
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// HashContent derives the canonical content identifier for a body of text.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// VerifyWebhookSignature checks a delivery received from the bridge against
// the webhook's shared secret.
func VerifyWebhookSignature(secret string, header http.Header, body []byte, now time.Time) bool {
	return webhooks.Verify(secret, header.Get(webhooks.HeaderSignature), header.Get(webhooks.HeaderTimestamp), body, now)
}

type AttestationParams struct {
	ContentID   string     `json:"platform_content_id,omitempty"`
	URL         string     `json:"platform_url,omitempty"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
}

type RegisterContentParams struct {
	Username    string             `json:"username"`
	Content     string             `json:"content,omitempty"`
	ContentHash string             `json:"content_hash,omitempty"`
	License     string             `json:"license"`
	Title       string             `json:"title,omitempty"`
	WordCount   int                `json:"word_count,omitempty"`
	Attestation *AttestationParams `json:"attestation,omitempty"`
}

type ContentRecord struct {
	ContentHash  string    `json:"content_hash"`
	Owner        string    `json:"owner"`
	License      string    `json:"license"`
	RegisteredAt time.Time `json:"registered_at"`
	LedgerStatus string    `json:"ledger_status"`
	LedgerTxRef  string    `json:"ledger_tx_ref"`
}

type registerContentEnvelope struct {
	Content   ContentRecord `json:"content"`
	Duplicate bool          `json:"duplicate"`
}

func (c *Client) RegisterContent(ctx context.Context, params RegisterContentParams) (*ContentRecord, bool, error) {
	var out registerContentEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/content", params, &out); err != nil {
		return nil, false, err
	}
	return &out.Content, out.Duplicate, nil
}

type TransferParams struct {
	CurrentOwner string `json:"current_owner"`
	NewOwner     string `json:"new_owner"`
	Reason       string `json:"reason,omitempty"`
}

type TransferRecord struct {
	ID           string    `json:"id"`
	ContentHash  string    `json:"content_hash"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Reason       string    `json:"reason"`
	BrokerDomain string    `json:"broker_domain"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Client) TransferOwnership(ctx context.Context, contentHash string, params TransferParams) (*TransferRecord, error) {
	var out struct {
		Transfer TransferRecord `json:"transfer"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/content/"+contentHash+"/transfer", params, &out); err != nil {
		return nil, err
	}
	return &out.Transfer, nil
}

func (c *Client) VerifyContent(ctx context.Context, contentHash string) (*ContentRecord, error) {
	var out struct {
		Content ContentRecord `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/content/"+contentHash, nil, &out); err != nil {
		return nil, err
	}
	return &out.Content, nil
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge api %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = encoded
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.PrivateKey != nil && len(payload) > 0 {
		signature, err := crypto.SignPayload(payload, c.PrivateKey)
		if err != nil {
			return err
		}
		req.Header.Set("X-Payload-Signature", signature)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
