// Package policy is the client for the host-based policy platform API
// (workload lookups, policy checks, rule search).
package policy

import (
	"bytes"
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

// flowQuery is the request body shared by policy checks and rule searches.
type flowQuery struct {
	Sources      []flowEndpoint `json:"sources"`
	Destinations []flowEndpoint `json:"destinations"`
	Services     []flowService  `json:"services"`
}

type flowEndpoint struct {
	IP string `json:"ip"`
}

type flowService struct {
	Port  int    `json:"port"`
	Proto string `json:"proto"`
}

func newFlowQuery(srcIP, dstIP string, port int, protocol string) flowQuery {
	return flowQuery{
		Sources:      []flowEndpoint{{IP: srcIP}},
		Destinations: []flowEndpoint{{IP: dstIP}},
		Services:     []flowService{{Port: port, Proto: strings.ToLower(protocol)}},
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, buf)
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
		return fmt.Errorf("policy api: %s returned %s", endpoint, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Workload returns the policy platform's record for a hostname, including
// its operating mode. Lookup failures degrade to mock data unless the
// client runs in strict mode.
func (c *Client) Workload(ctx context.Context, hostname string) (*domain.Workload, error) {
	var wl domain.Workload
	q := url.Values{"hostname": {hostname}}
	if err := c.do(ctx, http.MethodGet, "workloads", q, nil, &wl); err != nil {
		if c.fallback == config.FallbackStrict {
			return nil, fmt.Errorf("workload %q: %w", hostname, err)
		}
		slog.Warn("workload lookup failed, using fallback data",
			"hostname", hostname, "err", err)
		return mockWorkload(hostname), nil
	}
	return &wl, nil
}

// CheckPolicy asks whether a specific flow would be allowed.
func (c *Client) CheckPolicy(ctx context.Context, srcIP, dstIP string, port int, protocol string) (*domain.PolicyDecision, error) {
	var decision domain.PolicyDecision
	body := newFlowQuery(srcIP, dstIP, port, protocol)
	if err := c.do(ctx, http.MethodPost, "policy_check", nil, body, &decision); err != nil {
		if c.fallback == config.FallbackStrict {
			return nil, fmt.Errorf("policy check %s -> %s:%d/%s: %w", srcIP, dstIP, port, protocol, err)
		}
		slog.Warn("policy check failed, using fallback data",
			"src", srcIP, "dst", dstIP, "port", port, "err", err)
		return mockPolicyDecision(), nil
	}
	return &decision, nil
}

// SearchRules returns every configured rule matching the flow.
func (c *Client) SearchRules(ctx context.Context, srcIP, dstIP string, port int, protocol string) ([]domain.Rule, error) {
	var payload struct {
		Rules []domain.Rule `json:"rules"`
	}
	body := newFlowQuery(srcIP, dstIP, port, protocol)
	if err := c.do(ctx, http.MethodPost, "rule_search", nil, body, &payload); err != nil {
		if c.fallback == config.FallbackStrict {
			return nil, fmt.Errorf("rule search %s -> %s:%d/%s: %w", srcIP, dstIP, port, protocol, err)
		}
		slog.Warn("rule search failed, using fallback data",
			"src", srcIP, "dst", dstIP, "port", port, "err", err)
		return mockRules(port, protocol), nil
	}
	return payload.Rules, nil
}

func mockWorkload(hostname string) *domain.Workload {
	return &domain.Workload{
		Hostname:      hostname,
		OperatingMode: domain.ModeEnforced,
		PolicyState:   "active",
		Interfaces: []domain.WorkloadInterface{
			{Name: "eth0", IPAddress: "10.2.1.50"},
		},
	}
}

func mockPolicyDecision() *domain.PolicyDecision {
	return &domain.PolicyDecision{
		Allowed:  true,
		Decision: "allow",
		MatchedRules: []domain.Rule{
			{
				RuleID:   "rule-12345",
				RuleName: "Allow App Tier Communication",
				Action:   "allow",
			},
		},
	}
}

func mockRules(port int, protocol string) []domain.Rule {
	return []domain.Rule{
		{
			RuleID:       "rule-12345",
			RuleName:     "Allow App Tier Communication",
			Enabled:      true,
			Sources:      []domain.RuleEndpoint{{Label: "App-Tier"}},
			Destinations: []domain.RuleEndpoint{{Label: "DB-Tier"}},
			Services:     []domain.RuleService{{Port: port, Protocol: protocol}},
			Action:       "allow",
		},
		{
			RuleID:       "rule-67890",
			RuleName:     "Default Allow Internal",
			Enabled:      true,
			Sources:      []domain.RuleEndpoint{{IPRange: "10.0.0.0/8"}},
			Destinations: []domain.RuleEndpoint{{IPRange: "10.0.0.0/8"}},
			Services:     []domain.RuleService{{Port: port, Protocol: protocol}},
			Action:       "allow",
		},
	}
}
