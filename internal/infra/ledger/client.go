package ledger

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

	"daonbridge/internal/domain"
)

// Client talks to the DAON chain gateway over HTTP. Calls are bounded by
// the configured timeout; callers treat failures as degradation, never as a
// request error.
type Client struct {
	baseURL string
	chainID string
	timeout time.Duration
	httpDo  func(*http.Request) (*http.Response, error)
}

func NewClient(baseURL, chainID string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("ledger base url is required")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: chainID,
		timeout: timeout,
		httpDo:  doer,
	}, nil
}

type registerRequest struct {
	ChainID     string `json:"chain_id"`
	ContentHash string `json:"content_hash"`
	Creator     string `json:"creator"`
	License     string `json:"license"`
	Platform    string `json:"platform"`
}

type transferRequest struct {
	ChainID     string `json:"chain_id"`
	ContentHash string `json:"content_hash"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type txResponse struct {
	TxHash string `json:"tx_hash"`
}

func (c *Client) RegisterContent(ctx context.Context, record domain.ContentOwnership) (string, error) {
	_, platform, _ := domain.SplitIdentityKey(record.OwnerKey)
	body := registerRequest{
		ChainID:     c.chainID,
		ContentHash: record.ContentHash,
		Creator:     record.OwnerKey,
		License:     string(record.License),
		Platform:    platform,
	}
	return c.submit(ctx, "/v1/registry/register", body)
}

func (c *Client) TransferOwnership(ctx context.Context, transfer domain.OwnershipTransfer) (string, error) {
	body := transferRequest{
		ChainID:     c.chainID,
		ContentHash: transfer.ContentHash,
		From:        transfer.FromIdentity,
		To:          transfer.ToIdentity,
	}
	return c.submit(ctx, "/v1/registry/transfer", body)
}

func (c *Client) submit(ctx context.Context, path string, payload any) (string, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDo(req)
	if err != nil {
		return "", fmt.Errorf("ledger submit: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("ledger response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}
	var parsed txResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("ledger response: %w", err)
	}
	if parsed.TxHash == "" {
		return "", errors.New("ledger response missing tx_hash")
	}
	return parsed.TxHash, nil
}
