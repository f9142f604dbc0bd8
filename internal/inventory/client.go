// Package inventory is the client for the host/application inventory API.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"firewall-discovery-go/internal/config"
	"firewall-discovery-go/internal/domain"
)

type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	fallback config.FallbackMode
	http     *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration, fallback config.FallbackMode) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		timeout:  timeout,
		fallback: fallback,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	// Bound the call locally so a caller without a deadline cannot hang.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inventory api: %s returned %s", endpoint, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ApplicationHosts returns every host record attached to a business
// application. An unknown application yields an empty list, not an error.
func (c *Client) ApplicationHosts(ctx context.Context, applicationName string) ([]domain.HostRecord, error) {
	var payload struct {
		Hosts []domain.HostRecord `json:"hosts"`
	}
	q := url.Values{"name": {applicationName}}
	if err := c.get(ctx, "applications/search", q, &payload); err != nil {
		if c.fallback == config.FallbackStrict {
			return nil, fmt.Errorf("application hosts for %q: %w", applicationName, err)
		}
		slog.Warn("inventory call failed, using fallback data",
			"application", applicationName, "err", err)
		return mockApplicationHosts(), nil
	}
	return payload.Hosts, nil
}

// Host returns the record for a single hostname, or nil when the inventory
// has no such host. A nil record with a nil error is a genuine miss, as
// opposed to a failed lookup.
func (c *Client) Host(ctx context.Context, hostname string) (*domain.HostRecord, error) {
	var payload struct {
		Host *domain.HostRecord `json:"host"`
	}
	q := url.Values{"hostname": {hostname}}
	if err := c.get(ctx, "hosts/search", q, &payload); err != nil {
		if c.fallback == config.FallbackStrict {
			return nil, fmt.Errorf("host %q: %w", hostname, err)
		}
		slog.Warn("inventory call failed, using fallback data",
			"hostname", hostname, "err", err)
		return mockHost(hostname), nil
	}
	return payload.Host, nil
}

func mockApplicationHosts() []domain.HostRecord {
	return []domain.HostRecord{
		{
			Hostname:    "webserver01.dmz.example.com",
			Location:    "DMZ",
			NetworkZone: "Standard",
			Platform:    "ESX",
			OSType:      "Linux",
			IPAddress:   "10.1.1.10",
		},
		{
			Hostname:    "appserver01.internal.example.com",
			Location:    "Internal",
			NetworkZone: "High Risk",
			Platform:    "Physical",
			OSType:      "Linux",
			IPAddress:   "10.2.1.20",
		},
		{
			Hostname:    "dbserver01.internal.example.com",
			Location:    "Internal",
			NetworkZone: "Standard",
			Platform:    "ESX",
			OSType:      "Windows",
			IPAddress:   "10.2.2.30",
		},
	}
}

func mockHost(hostname string) *domain.HostRecord {
	return &domain.HostRecord{
		Hostname:    hostname,
		Location:    "Internal",
		NetworkZone: "Standard",
		Platform:    "ESX",
		OSType:      "Linux",
		IPAddress:   "10.2.1.50",
	}
}
