package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPGateway creates sessions on an external hosted-checkout API.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
}

type createSessionReq struct {
	UserID     string         `json:"user_id"`
	TotalCents int64          `json:"total_cents"`
	Items      []CheckoutItem `json:"items"`
}

type createSessionResp struct {
	SessionID string `json:"session_id"`
}

func (g *HTTPGateway) CreateSession(ctx context.Context, items []CheckoutItem) (string, error) {
	body, err := json.Marshal(createSessionReq{
		UserID:     items[0].UserID,
		TotalCents: Total(items),
		Items:      items,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(g.BaseURL, "/")+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if rejected(resp.StatusCode) {
			return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
		}
		return "", fmt.Errorf("gateway status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out createSessionResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("gateway returned empty session id")
	}
	return out.SessionID, nil
}

// rejected reports 4xx answers other than timeouts and throttling.
func rejected(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}
