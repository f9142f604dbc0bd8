package service

import (
	"context"

	"firewall-discovery-go/internal/domain"
)

// InventoryProvider resolves applications and hostnames to host records.
// A nil record with a nil error from Host means the inventory has no such
// host; errors are reserved for failed lookups.
type InventoryProvider interface {
	ApplicationHosts(ctx context.Context, applicationName string) ([]domain.HostRecord, error)
	Host(ctx context.Context, hostname string) (*domain.HostRecord, error)
}

// PolicyProvider answers workload and flow questions for the host-based
// policy platform.
type PolicyProvider interface {
	Workload(ctx context.Context, hostname string) (*domain.Workload, error)
	CheckPolicy(ctx context.Context, srcIP, dstIP string, port int, protocol string) (*domain.PolicyDecision, error)
	SearchRules(ctx context.Context, srcIP, dstIP string, port int, protocol string) ([]domain.Rule, error)
}
