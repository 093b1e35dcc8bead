package smm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"boostpanel/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Module("smm", fx.Provide(NewClient))

// Client is the HTTP Gateway implementation. Every action is a single
// form-encoded POST carrying the per-account key; responses are JSON.
type Client struct {
	apiURL string
	http   *http.Client
}

func NewClient(cfg *config.Config) Gateway {
	return &Client{
		apiURL: cfg.Gateway.URL,
		http:   &http.Client{Timeout: cfg.Gateway.Timeout},
	}
}

func (c *Client) call(ctx context.Context, apiKey, action string, params url.Values, out any) error {
	form := url.Values{}
	form.Set("key", apiKey)
	form.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("smm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("smm: %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("smm: read %s response: %w", action, err)
	}

	// Upstream reports failures in the body, usually with HTTP 200.
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
		return &APIError{Message: probe.Error}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("smm: %s returned status %d", action, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("smm: decode %s response: %w", action, err)
	}

	return nil
}

func (c *Client) PlaceOrder(ctx context.Context, apiKey string, req OrderRequest) (string, error) {
	params := url.Values{}
	params.Set("service", req.Service)
	params.Set("link", req.Link)
	params.Set("quantity", strconv.FormatInt(req.Quantity, 10))

	var out struct {
		Order FlexString `json:"order"`
	}
	if err := c.call(ctx, apiKey, "add", params, &out); err != nil {
		return "", err
	}
	if out.Order.String() == "" {
		return "", &APIError{Message: "no order id in response"}
	}

	return out.Order.String(), nil
}

func (c *Client) OrderStatus(ctx context.Context, apiKey string, orderIDs []string) (map[string]OrderStatus, error) {
	if len(orderIDs) == 0 {
		return map[string]OrderStatus{}, nil
	}

	params := url.Values{}
	params.Set("orders", strings.Join(orderIDs, ","))

	var out map[string]json.RawMessage
	if err := c.call(ctx, apiKey, "status", params, &out); err != nil {
		return nil, err
	}

	statuses := make(map[string]OrderStatus, len(out))
	for id, raw := range out {
		var st OrderStatus
		// Unknown ids come back as {"error": "..."} entries; skip them.
		if err := json.Unmarshal(raw, &st); err != nil || st.Status == "" {
			continue
		}
		statuses[id] = st
	}

	return statuses, nil
}

func (c *Client) Balance(ctx context.Context, apiKey string) (string, error) {
	var out struct {
		Balance FlexString `json:"balance"`
	}
	if err := c.call(ctx, apiKey, "balance", url.Values{}, &out); err != nil {
		return "", err
	}
	if out.Balance.String() == "" {
		return "", &APIError{Message: "no balance in response"}
	}

	return out.Balance.String(), nil
}

func (c *Client) Services(ctx context.Context, apiKey string) ([]CatalogEntry, error) {
	var out []CatalogEntry
	if err := c.call(ctx, apiKey, "services", url.Values{}, &out); err != nil {
		return nil, err
	}

	return out, nil
}
