package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/domain"
)

// TokenSource supplies the bearer token for backend calls.
type TokenSource interface {
	AccessToken() string
}

// Client is the REST gateway to the delivery backend.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

// NewClient creates an orders gateway against the given base URL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
}

// AvailableOrders fetches the orders the driver may accept.
func (c *Client) AvailableOrders(ctx context.Context) ([]domain.Order, error) {
	var list listDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/delivery/orders/available/", nil, &list); err != nil {
		return nil, err
	}
	return mapOrders(list), nil
}

// DriverOrders fetches the orders currently assigned to the driver.
func (c *Client) DriverOrders(ctx context.Context) ([]domain.Order, error) {
	var list listDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/delivery/orders/mine/", nil, &list); err != nil {
		return nil, err
	}
	return mapOrders(list), nil
}

// OrderHistory fetches the driver's completed orders.
func (c *Client) OrderHistory(ctx context.Context) ([]domain.Order, error) {
	var list listDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/delivery/orders/history/", nil, &list); err != nil {
		return nil, err
	}
	return mapOrders(list), nil
}

// Accept accepts the order, routing to the batch endpoint when the order
// carries a batch ref. Acting on a batch member accepts the whole batch.
func (c *Client) Accept(ctx context.Context, o domain.Order) error {
	path := fmt.Sprintf("/api/v1/delivery/orders/%s/accept/", o.ID)
	if o.Batched() {
		path = fmt.Sprintf("/api/v1/delivery/batches/%s/accept/", o.Batch.ID)
	}
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

// Decline declines the order with an optional reason. Declining an
// unassigned available order is allowed; the backend rejects only orders
// already assigned to another driver.
func (c *Client) Decline(ctx context.Context, id, reason string) error {
	path := fmt.Sprintf("/api/v1/delivery/orders/%s/decline/", id)
	return c.do(ctx, http.MethodPost, path, declineDTO{Reason: reason}, nil)
}

// Skip removes the order from the driver's available feed without declining it.
func (c *Client) Skip(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/delivery/orders/%s/skip/", id)
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

// UpdateStatus reports a status transition for the delivery, with an
// optional proof-of-delivery photo id.
func (c *Client) UpdateStatus(ctx context.Context, deliveryID string, status domain.OrderStatus, photoID string) error {
	path := fmt.Sprintf("/api/v1/delivery/orders/%s/status/", deliveryID)
	return c.do(ctx, http.MethodPatch, path, statusDTO{Status: string(status), PhotoID: photoID}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("orders gateway: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("orders gateway: %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("orders gateway: %s %s: %w: %v", method, path, apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("orders gateway: decode %s: %w", path, err)
	}
	return nil
}

// classify maps HTTP failures onto the apperr taxonomy.
func classify(method, path string, resp *http.Response) error {
	detail := readDetail(resp.Body)

	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = apperr.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = apperr.ErrAuth
	case resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500:
		kind = apperr.ErrNetwork
	default:
		kind = apperr.ErrInvalid
	}

	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("orders gateway: %s %s: %w: %s (%d)", method, path, kind, detail, resp.StatusCode)
}

func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var e errorDTO
	if err := json.Unmarshal(raw, &e); err != nil {
		return ""
	}
	return strings.TrimSpace(e.Detail)
}
