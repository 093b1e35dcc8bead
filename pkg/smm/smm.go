package smm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Canonical upstream order statuses. The upstream returns free-form strings;
// these are the values it is known to emit.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusPartial    = "Partial"
	StatusCanceled   = "Canceled"
)

// OrderRequest is the template submitted to the reseller "add" action.
type OrderRequest struct {
	Service  string
	Link     string
	Quantity int64
}

// FlexString decodes from either a JSON string or a JSON number. The
// upstream is inconsistent about which one it emits per panel.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// OrderStatus is one entry of the reseller "status" response.
type OrderStatus struct {
	Status  string     `json:"status"`
	Remains FlexString `json:"remains"`
	Charge  FlexString `json:"charge,omitempty"`
}

// CatalogEntry is one entry of the reseller "services" response.
type CatalogEntry struct {
	Service  FlexString `json:"service"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Rate     FlexString `json:"rate"`
	Min      FlexString `json:"min"`
	Max      FlexString `json:"max"`
}

// Gateway abstracts the upstream reseller API. It is an unreliable,
// rate-sensitive dependency: callers own timeouts and retry policy.
type Gateway interface {
	// PlaceOrder submits a new order and returns the upstream order id.
	PlaceOrder(ctx context.Context, apiKey string, req OrderRequest) (string, error)

	// OrderStatus resolves current status for the given upstream order ids.
	OrderStatus(ctx context.Context, apiKey string, orderIDs []string) (map[string]OrderStatus, error)

	// Balance returns the account balance, used for credential validation.
	Balance(ctx context.Context, apiKey string) (string, error)

	// Services returns the reseller service catalog.
	Services(ctx context.Context, apiKey string) ([]CatalogEntry, error)
}

// APIError is an error reported by the upstream in its response body.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smm: upstream error: %s", e.Message)
}
