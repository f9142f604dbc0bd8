package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"firewall-discovery-go/internal/domain"
)

// ErrMissingTarget is returned when a discovery request names neither an
// application nor a hostname. Handlers map it to a 400.
var ErrMissingTarget = errors.New("either application_name or hostname must be provided")

// classifyLimit bounds the per-host classification fan-out.
const classifyLimit = 8

// DiscoveryService resolves an application name or hostname into classified
// hosts plus a per-platform summary.
type DiscoveryService struct {
	inventory  InventoryProvider
	classifier *Classifier
}

func NewDiscoveryService(inventory InventoryProvider, classifier *Classifier) *DiscoveryService {
	return &DiscoveryService{inventory: inventory, classifier: classifier}
}

// Discover runs the application path when applicationName is set, otherwise
// the host path. When both are set the application path wins; that is the
// documented current behavior, not necessarily the desired one.
func (s *DiscoveryService) Discover(ctx context.Context, applicationName, hostname string) (*domain.DiscoveryResult, error) {
	switch {
	case applicationName != "":
		return s.discoverApplication(ctx, applicationName)
	case hostname != "":
		return s.discoverHost(ctx, hostname)
	default:
		return nil, ErrMissingTarget
	}
}

func (s *DiscoveryService) discoverApplication(ctx context.Context, applicationName string) (*domain.DiscoveryResult, error) {
	hosts, err := s.inventory.ApplicationHosts(ctx, applicationName)
	if err != nil {
		return nil, fmt.Errorf("discover application %q: %w", applicationName, err)
	}

	result := &domain.DiscoveryResult{
		ApplicationName: applicationName,
		Hosts:           []domain.ClassifiedHost{},
		Summary:         domain.NewPlatformSummary(),
	}
	if len(hosts) == 0 {
		slog.Info("no hosts for application", "application", applicationName)
		return result, nil
	}

	// Hosts classify independently; fan out but keep input order.
	classified := make([]domain.ClassifiedHost, len(hosts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(classifyLimit)
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			classified[i] = s.classifier.Classify(gCtx, host)
			return nil
		})
	}
	_ = g.Wait() // Classify never fails.

	result.Hosts = classified
	for _, h := range classified {
		result.Summary.Merge(h)
	}
	return result, nil
}

func (s *DiscoveryService) discoverHost(ctx context.Context, hostname string) (*domain.DiscoveryResult, error) {
	host, err := s.inventory.Host(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("discover host %q: %w", hostname, err)
	}
	if host == nil {
		slog.Info("host not found in inventory", "hostname", hostname)
		return &domain.DiscoveryResult{Hostname: hostname, Found: false}, nil
	}

	classified := s.classifier.Classify(ctx, *host)
	summary := domain.NewPlatformSummary()
	summary.Merge(classified)

	return &domain.DiscoveryResult{
		Hostname: hostname,
		Found:    true,
		Hosts:    []domain.ClassifiedHost{classified},
		Summary:  summary,
	}, nil
}
