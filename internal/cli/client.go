package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// GatewayClient calls the gateway invoice API.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Emit posts payload to the emit endpoint.
func (c *GatewayClient) Emit(ctx context.Context, payload []byte) (invoice.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/invoices/emit", bytes.NewReader(payload))
	if err != nil {
		return invoice.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Status queries the authorization status of accessKey. env may be empty.
func (c *GatewayClient) Status(ctx context.Context, accessKey string, env invoice.Environment) (invoice.Result, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/invoices/" + url.PathEscape(accessKey) + "/status")
	if err != nil {
		return invoice.Result{}, fmt.Errorf("failed to parse gateway URL: %w", err)
	}
	if env != "" {
		q := u.Query()
		q.Set("env", string(env))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return invoice.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// do sends req and decodes the Result body. Error replies from the gateway are
// Result shaped too; they are returned with an error naming the status code.
func (c *GatewayClient) do(req *http.Request) (invoice.Result, error) {
	// #nosec G704 -- baseURL is from client config, the access key is path escaped
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return invoice.Result{}, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return invoice.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var res invoice.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return invoice.Result{}, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.Join(res.Messages, "; "))
	}
	return res, nil
}
