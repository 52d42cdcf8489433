package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client talks to the bank-data provider's JSON API. All endpoints are POST
// with client credentials in the body, mirroring the provider's wire format.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client
}

// NewClient builds a provider client. baseURL selects the provider
// environment (sandbox, development, production).
func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("X-Client-Secret", c.secret)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call provider %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var provErr Error
		if err := json.NewDecoder(resp.Body).Decode(&provErr); err != nil || provErr.Code == "" {
			return &Error{Code: "UNKNOWN", Message: resp.Status, StatusCode: resp.StatusCode}
		}
		provErr.StatusCode = resp.StatusCode
		return &provErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}

// CreateLinkToken issues a short-lived token for the linking flow.
func (c *Client) CreateLinkToken(ctx context.Context, userID int64) (LinkToken, error) {
	var token LinkToken
	err := c.post(ctx, "/link/token/create", map[string]any{
		"client_user_id": fmt.Sprintf("%d", userID),
		"products":       []string{"transactions"},
	}, &token)
	return token, err
}

// ExchangePublicToken trades the public token from a completed link flow for
// the durable access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (ExchangeResult, error) {
	var result ExchangeResult
	err := c.post(ctx, "/item/public_token/exchange", map[string]any{
		"public_token": publicToken,
	}, &result)
	return result, err
}

// Accounts lists the accounts currently under the item's credential.
func (c *Client) Accounts(ctx context.Context, accessToken string) ([]AccountInfo, error) {
	var resp struct {
		Accounts []AccountInfo `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/get", map[string]any{"access_token": accessToken}, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// Institution resolves an institution's display name by its provider id.
func (c *Client) Institution(ctx context.Context, institutionID string) (Institution, error) {
	var resp struct {
		Institution Institution `json:"institution"`
	}
	if err := c.post(ctx, "/institutions/get_by_id", map[string]any{"institution_id": institutionID}, &resp); err != nil {
		return Institution{}, err
	}
	return resp.Institution, nil
}

// SyncTransactions fetches the next page of the incremental feed. An empty
// cursor starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (SyncPage, error) {
	payload := map[string]any{"access_token": accessToken}
	if cursor != "" {
		payload["cursor"] = cursor
	}
	var page SyncPage
	err := c.post(ctx, "/transactions/sync", payload, &page)
	return page, err
}

// RemoveItem deregisters the item with the provider. Callers treat failure
// as best-effort; local deletion proceeds regardless.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/item/remove", map[string]any{"access_token": accessToken}, nil)
}
