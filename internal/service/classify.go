package service

import (
	"context"
	"strings"

	"firewall-discovery-go/internal/domain"
)

// platformRule binds one firewall platform to the predicate that decides
// whether it governs a host and to the builder for its detail record.
// Rules are evaluated in registration order, which fixes the order of
// applicable_firewalls.
type platformRule struct {
	platform domain.FirewallPlatform
	applies  func(h domain.ClassifiedHost) bool
	detail   func(ctx context.Context, c *Classifier, h domain.ClassifiedHost) domain.PlatformDetail
}

// Classifier maps a host's inventory attributes to the set of firewall
// platforms that govern it. Classification never fails: the only outbound
// call (the workload operating-mode lookup) degrades to "unknown".
type Classifier struct {
	policy PolicyProvider
	rules  []platformRule
}

func NewClassifier(policy PolicyProvider) *Classifier {
	return &Classifier{
		policy: policy,
		rules: []platformRule{
			{
				platform: domain.ExternalCheckpoint,
				applies:  func(h domain.ClassifiedHost) bool { return h.Location == "DMZ" },
				detail: func(_ context.Context, _ *Classifier, h domain.ClassifiedHost) domain.PlatformDetail {
					return domain.PlatformDetail{
						Reason:        "Host location is " + h.Location,
						PlatformLabel: "Checkpoint - External/Perimeter",
					}
				},
			},
			{
				platform: domain.InternalCheckpoint,
				applies:  func(h domain.ClassifiedHost) bool { return h.NetworkZone == "HIGH RISK" },
				detail: func(_ context.Context, _ *Classifier, h domain.ClassifiedHost) domain.PlatformDetail {
					return domain.PlatformDetail{
						Reason:        "Network zone is " + h.NetworkZone,
						PlatformLabel: "Checkpoint - Internal",
					}
				},
			},
			{
				platform: domain.Illumio,
				applies: func(h domain.ClassifiedHost) bool {
					return h.OSType == "WINDOWS" || h.OSType == "LINUX"
				},
				detail: func(ctx context.Context, c *Classifier, h domain.ClassifiedHost) domain.PlatformDetail {
					return domain.PlatformDetail{
						Reason:        "Host OS type is " + h.OSType,
						PlatformLabel: "Illumio - Host-Based Firewall",
						OperatingMode: c.operatingMode(ctx, h.Hostname),
					}
				},
			},
			{
				platform: domain.NSX,
				applies:  func(h domain.ClassifiedHost) bool { return h.Platform == "ESX" },
				detail: func(_ context.Context, _ *Classifier, h domain.ClassifiedHost) domain.PlatformDetail {
					return domain.PlatformDetail{
						Reason:        "Host platform is " + h.Platform,
						PlatformLabel: "NSX - Virtual Firewall",
					}
				},
			},
		},
	}
}

// Classify evaluates every platform rule against the host. Attributes are
// upper-cased once so the predicates compare case-insensitively, and the
// normalized values are what the result carries.
func (c *Classifier) Classify(ctx context.Context, host domain.HostRecord) domain.ClassifiedHost {
	ip := host.IPAddress
	if ip == "" {
		ip = domain.UnknownIP
	}

	out := domain.ClassifiedHost{
		Hostname:            host.Hostname,
		Location:            strings.ToUpper(host.Location),
		NetworkZone:         strings.ToUpper(host.NetworkZone),
		Platform:            strings.ToUpper(host.Platform),
		OSType:              strings.ToUpper(host.OSType),
		IPAddress:           ip,
		ApplicableFirewalls: []domain.FirewallPlatform{},
		FirewallDetails:     map[domain.FirewallPlatform]domain.PlatformDetail{},
	}
	if out.Hostname == "" {
		out.Hostname = "unknown"
	}

	for _, rule := range c.rules {
		if !rule.applies(out) {
			continue
		}
		out.ApplicableFirewalls = append(out.ApplicableFirewalls, rule.platform)
		out.FirewallDetails[rule.platform] = rule.detail(ctx, c, out)
	}
	return out
}

// operatingMode fetches the workload's enforcement mode. Any failure, or a
// missing workload, degrades to "unknown" so classification cannot abort.
func (c *Classifier) operatingMode(ctx context.Context, hostname string) string {
	wl, err := c.policy.Workload(ctx, hostname)
	if err != nil || wl == nil || wl.OperatingMode == "" {
		return domain.ModeUnknown
	}
	return wl.OperatingMode
}
