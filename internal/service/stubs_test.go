package service

import (
	"context"

	"firewall-discovery-go/internal/domain"
)

// stubInventory implements InventoryProvider with overridable behavior.
type stubInventory struct {
	applicationHosts func(ctx context.Context, name string) ([]domain.HostRecord, error)
	host             func(ctx context.Context, hostname string) (*domain.HostRecord, error)
}

func (s *stubInventory) ApplicationHosts(ctx context.Context, name string) ([]domain.HostRecord, error) {
	if s.applicationHosts == nil {
		return nil, nil
	}
	return s.applicationHosts(ctx, name)
}

func (s *stubInventory) Host(ctx context.Context, hostname string) (*domain.HostRecord, error) {
	if s.host == nil {
		return nil, nil
	}
	return s.host(ctx, hostname)
}

// stubPolicy implements PolicyProvider. Unset funcs return benign defaults.
type stubPolicy struct {
	workload    func(ctx context.Context, hostname string) (*domain.Workload, error)
	checkPolicy func(ctx context.Context, srcIP, dstIP string, port int, protocol string) (*domain.PolicyDecision, error)
	searchRules func(ctx context.Context, srcIP, dstIP string, port int, protocol string) ([]domain.Rule, error)
}

func (s *stubPolicy) Workload(ctx context.Context, hostname string) (*domain.Workload, error) {
	if s.workload == nil {
		return &domain.Workload{Hostname: hostname, OperatingMode: domain.ModeEnforced}, nil
	}
	return s.workload(ctx, hostname)
}

func (s *stubPolicy) CheckPolicy(ctx context.Context, srcIP, dstIP string, port int, protocol string) (*domain.PolicyDecision, error) {
	if s.checkPolicy == nil {
		return &domain.PolicyDecision{Allowed: true, Decision: "allow"}, nil
	}
	return s.checkPolicy(ctx, srcIP, dstIP, port, protocol)
}

func (s *stubPolicy) SearchRules(ctx context.Context, srcIP, dstIP string, port int, protocol string) ([]domain.Rule, error) {
	if s.searchRules == nil {
		return nil, nil
	}
	return s.searchRules(ctx, srcIP, dstIP, port, protocol)
}
