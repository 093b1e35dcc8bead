package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"boostpanel/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rates", fx.Provide(NewClient))

// Source resolves the live USD conversion rate for the configured display
// currency, falling back to a fixed rate when the feed is unreachable.
type Source interface {
	Rate(ctx context.Context) float64
}

type Client struct {
	url      string
	currency string
	fallback float64
	http     *http.Client
}

func NewClient(cfg *config.Config) Source {
	return &Client{
		url:      cfg.Rates.URL,
		currency: cfg.Rates.Currency,
		fallback: cfg.Rates.Fallback,
		http:     &http.Client{Timeout: cfg.Rates.Timeout},
	}
}

func (c *Client) Rate(ctx context.Context) float64 {
	rate, err := c.fetch(ctx)
	if err != nil {
		zap.L().Warn("rates: falling back to fixed rate",
			zap.String("currency", c.currency),
			zap.Float64("fallback", c.fallback),
			zap.Error(err),
		)
		return c.fallback
	}

	return rate
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates: status %d", resp.StatusCode)
	}

	var out struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}

	rate, ok := out.Rates[c.currency]
	if !ok {
		return 0, fmt.Errorf("rates: currency %s not in feed", c.currency)
	}

	return rate, nil
}
