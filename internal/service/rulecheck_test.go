package service

import (
	"context"
	"errors"
	"testing"

	"firewall-discovery-go/internal/domain"
)

func illumioResult(hostname, ip string) *domain.DiscoveryResult {
	h := domain.ClassifiedHost{
		Hostname:            hostname,
		OSType:              "LINUX",
		IPAddress:           ip,
		ApplicableFirewalls: []domain.FirewallPlatform{domain.Illumio},
	}
	summary := domain.NewPlatformSummary()
	summary.Merge(h)
	return &domain.DiscoveryResult{
		Hostname: hostname,
		Found:    true,
		Hosts:    []domain.ClassifiedHost{h},
		Summary:  summary,
	}
}

func plainResult(hostname, ip string) *domain.DiscoveryResult {
	h := domain.ClassifiedHost{
		Hostname:            hostname,
		IPAddress:           ip,
		ApplicableFirewalls: []domain.FirewallPlatform{},
	}
	return &domain.DiscoveryResult{
		Hostname: hostname,
		Found:    true,
		Hosts:    []domain.ClassifiedHost{h},
		Summary:  domain.NewPlatformSummary(),
	}
}

func TestCheckConnectivityNoApplicablePlatforms(t *testing.T) {
	svc := NewRuleCheckService(&stubPolicy{})

	results := svc.CheckConnectivity(context.Background(),
		plainResult("a", "10.0.0.1"), plainResult("b", "10.0.0.2"), 443, "TCP")

	if len(results) != len(domain.Platforms()) {
		t.Fatalf("result slots = %d, want %d", len(results), len(domain.Platforms()))
	}
	for p, res := range results {
		if res != nil {
			t.Fatalf("slot %s = %+v, want nil", p, res)
		}
	}
}

func TestCheckConnectivitySuccess(t *testing.T) {
	policy := &stubPolicy{
		checkPolicy: func(_ context.Context, src, dst string, port int, protocol string) (*domain.PolicyDecision, error) {
			if src != "10.1.1.10" || dst != "10.2.2.30" || port != 443 || protocol != "TCP" {
				t.Fatalf("unexpected flow %s -> %s:%d/%s", src, dst, port, protocol)
			}
			return &domain.PolicyDecision{Allowed: true, Decision: "allow"}, nil
		},
		searchRules: func(_ context.Context, _, _ string, port int, protocol string) ([]domain.Rule, error) {
			return []domain.Rule{
				{RuleID: "rule-1", Action: "allow", Services: []domain.RuleService{{Port: port, Protocol: protocol}}},
				{RuleID: "rule-2", Action: "allow"},
			}, nil
		},
	}
	svc := NewRuleCheckService(policy)

	results := svc.CheckConnectivity(context.Background(),
		illumioResult("web01", "10.1.1.10"), illumioResult("db01", "10.2.2.30"), 443, "TCP")

	res := results[domain.Illumio]
	if res == nil || res.Status != domain.CheckSuccess {
		t.Fatalf("illumio slot = %+v", res)
	}
	if res.SourceIP != "10.1.1.10" || res.DestIP != "10.2.2.30" {
		t.Fatalf("ips = %s -> %s", res.SourceIP, res.DestIP)
	}
	if len(res.MatchingRules) != 2 {
		t.Fatalf("matching rules = %d, want 2", len(res.MatchingRules))
	}
	if res.PolicyCheck == nil || !res.PolicyCheck.Allowed {
		t.Fatalf("policy check = %+v", res.PolicyCheck)
	}
}

func TestCheckConnectivityTriggersOnSourceOnly(t *testing.T) {
	called := false
	policy := &stubPolicy{
		checkPolicy: func(context.Context, string, string, int, string) (*domain.PolicyDecision, error) {
			called = true
			return &domain.PolicyDecision{Allowed: false, Decision: "deny"}, nil
		},
	}
	svc := NewRuleCheckService(policy)

	// Only the source is governed by Illumio; the check still runs.
	results := svc.CheckConnectivity(context.Background(),
		illumioResult("web01", "10.1.1.10"), plainResult("legacy01", "10.9.9.9"), 22, "TCP")

	if res := results[domain.Illumio]; res == nil || res.Status != domain.CheckSuccess {
		t.Fatalf("illumio slot = %+v", res)
	}
	if !called {
		t.Fatal("policy check must run for one-sided applicability")
	}
}

func TestCheckConnectivityUnresolvedIP(t *testing.T) {
	policy := &stubPolicy{
		checkPolicy: func(context.Context, string, string, int, string) (*domain.PolicyDecision, error) {
			t.Fatal("policy provider must not be called without usable IPs")
			return nil, nil
		},
	}
	svc := NewRuleCheckService(policy)

	results := svc.CheckConnectivity(context.Background(),
		illumioResult("web01", domain.UnknownIP), illumioResult("db01", "10.2.2.30"), 443, "TCP")

	res := results[domain.Illumio]
	if res == nil || res.Status != domain.CheckError {
		t.Fatalf("illumio slot = %+v", res)
	}
	if res.Message != "Could not determine IP addresses for source or destination" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestCheckConnectivityPicksFirstUsableIP(t *testing.T) {
	noIP := domain.ClassifiedHost{
		Hostname:            "stale01",
		OSType:              "LINUX",
		IPAddress:           domain.UnknownIP,
		ApplicableFirewalls: []domain.FirewallPlatform{domain.Illumio},
	}
	withIP := domain.ClassifiedHost{
		Hostname:            "web02",
		OSType:              "LINUX",
		IPAddress:           "10.1.1.11",
		ApplicableFirewalls: []domain.FirewallPlatform{domain.Illumio},
	}
	summary := domain.NewPlatformSummary()
	summary.Merge(noIP)
	source := &domain.DiscoveryResult{
		ApplicationName: "frontend",
		Hosts:           []domain.ClassifiedHost{noIP, withIP},
		Summary:         summary,
	}

	svc := NewRuleCheckService(&stubPolicy{})
	results := svc.CheckConnectivity(context.Background(),
		source, illumioResult("db01", "10.2.2.30"), 443, "TCP")

	res := results[domain.Illumio]
	if res == nil || res.Status != domain.CheckSuccess {
		t.Fatalf("illumio slot = %+v", res)
	}
	if res.SourceIP != "10.1.1.11" {
		t.Fatalf("source ip = %q, want first usable 10.1.1.11", res.SourceIP)
	}
}

func TestCheckConnectivityProviderFailureBecomesErrorSlot(t *testing.T) {
	policy := &stubPolicy{
		searchRules: func(context.Context, string, string, int, string) ([]domain.Rule, error) {
			return nil, errors.New("policy api returned 503")
		},
	}
	svc := NewRuleCheckService(policy)

	results := svc.CheckConnectivity(context.Background(),
		illumioResult("web01", "10.1.1.10"), illumioResult("db01", "10.2.2.30"), 443, "TCP")

	res := results[domain.Illumio]
	if res == nil || res.Status != domain.CheckError {
		t.Fatalf("illumio slot = %+v", res)
	}
	if res.Message == "" {
		t.Fatal("error slot must carry a message")
	}
}

func TestCheckConnectivityStubPlatformsReportNotImplemented(t *testing.T) {
	host := domain.ClassifiedHost{
		Hostname:            "dmz01",
		Location:            "DMZ",
		IPAddress:           "10.1.1.10",
		ApplicableFirewalls: []domain.FirewallPlatform{domain.ExternalCheckpoint},
	}
	summary := domain.NewPlatformSummary()
	summary.Merge(host)
	source := &domain.DiscoveryResult{
		Hostname: "dmz01", Found: true,
		Hosts: []domain.ClassifiedHost{host}, Summary: summary,
	}

	svc := NewRuleCheckService(&stubPolicy{})
	results := svc.CheckConnectivity(context.Background(),
		source, plainResult("b", "10.0.0.2"), 443, "TCP")

	res := results[domain.ExternalCheckpoint]
	if res == nil || res.Status != domain.CheckNotImplemented {
		t.Fatalf("external_checkpoint slot = %+v", res)
	}
	if results[domain.Illumio] != nil {
		t.Fatalf("illumio slot = %+v, want nil", results[domain.Illumio])
	}
}
