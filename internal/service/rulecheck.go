package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"firewall-discovery-go/internal/domain"
)

// checkFunc runs one platform's rule check for an already-discovered
// source/destination pair. The receiver comes first so method expressions
// like (*RuleCheckService).checkIllumio register directly.
type checkFunc func(s *RuleCheckService, ctx context.Context, source, dest *domain.DiscoveryResult, port int, protocol string) *domain.RuleCheckResult

// platformCheck pairs a platform with its rule check. The registry keeps
// the orchestration loop closed: a new platform is a new entry here.
type platformCheck struct {
	platform domain.FirewallPlatform
	check    checkFunc
}

// RuleCheckService answers whether a flow between two discovered endpoints
// would be permitted, per applicable platform.
type RuleCheckService struct {
	policy PolicyProvider
	checks []platformCheck
}

func NewRuleCheckService(policy PolicyProvider) *RuleCheckService {
	return &RuleCheckService{
		policy: policy,
		checks: []platformCheck{
			{domain.ExternalCheckpoint, notImplemented("External Checkpoint integration coming soon")},
			{domain.InternalCheckpoint, notImplemented("Internal Checkpoint integration coming soon")},
			{domain.Illumio, (*RuleCheckService).checkIllumio},
			{domain.NSX, notImplemented("NSX integration coming soon")},
		},
	}
}

// CheckConnectivity runs every platform whose summary bit is set on either
// endpoint. Platforms applicable to neither side stay nil in the result.
// One-sided flows are still checked: a platform governing only the source
// can still block the traffic.
func (s *RuleCheckService) CheckConnectivity(ctx context.Context, source, dest *domain.DiscoveryResult, port int, protocol string) domain.ConnectivityResult {
	results := make(domain.ConnectivityResult, len(s.checks))
	for _, pc := range s.checks {
		results[pc.platform] = nil
		if applies(source, pc.platform) || applies(dest, pc.platform) {
			results[pc.platform] = pc.check(s, ctx, source, dest, port, protocol)
		}
	}
	return results
}

func applies(r *domain.DiscoveryResult, p domain.FirewallPlatform) bool {
	return r != nil && r.Summary[p]
}

func (s *RuleCheckService) checkIllumio(ctx context.Context, source, dest *domain.DiscoveryResult, port int, protocol string) *domain.RuleCheckResult {
	srcIP, srcOK := firstUsableIP(source)
	dstIP, dstOK := firstUsableIP(dest)
	if !srcOK || !dstOK {
		return &domain.RuleCheckResult{
			Status:  domain.CheckError,
			Message: "Could not determine IP addresses for source or destination",
		}
	}

	// The decision and the rule search are independent lookups.
	var decision *domain.PolicyDecision
	var rules []domain.Rule
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		decision, err = s.policy.CheckPolicy(gCtx, srcIP, dstIP, port, protocol)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = s.policy.SearchRules(gCtx, srcIP, dstIP, port, protocol)
		return err
	})
	if err := g.Wait(); err != nil {
		// Strict-mode provider failures surface as an error slot, never as
		// a transport error.
		return &domain.RuleCheckResult{Status: domain.CheckError, Message: err.Error()}
	}

	return &domain.RuleCheckResult{
		Status:        domain.CheckSuccess,
		SourceIP:      srcIP,
		DestIP:        dstIP,
		Port:          port,
		Protocol:      protocol,
		PolicyCheck:   decision,
		MatchingRules: rules,
	}
}

// firstUsableIP scans the discovered hosts in order and picks the first
// address that is present and not the "unknown" sentinel. Multi-homed
// applications are deliberately reduced to one address per side.
func firstUsableIP(r *domain.DiscoveryResult) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, h := range r.Hosts {
		if h.IPAddress != "" && h.IPAddress != domain.UnknownIP {
			return h.IPAddress, true
		}
	}
	return "", false
}

func notImplemented(message string) checkFunc {
	return func(*RuleCheckService, context.Context, *domain.DiscoveryResult, *domain.DiscoveryResult, int, string) *domain.RuleCheckResult {
		return &domain.RuleCheckResult{Status: domain.CheckNotImplemented, Message: message}
	}
}
