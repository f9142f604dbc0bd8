package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"firewall-discovery-go/internal/config"
	"firewall-discovery-go/internal/domain"
	httpapi "firewall-discovery-go/internal/http"
	"firewall-discovery-go/internal/inventory"
	"firewall-discovery-go/internal/logging"
	imigrate "firewall-discovery-go/internal/migrate"
	"firewall-discovery-go/internal/policy"
	"firewall-discovery-go/internal/service"
	"firewall-discovery-go/internal/storage"
)

const version = "1.0.0"

var (
	discoverApp  string
	discoverHost string

	checkSource      string
	checkDestination string
	checkPort        int
	checkProtocol    string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firewall-discovery",
		Short: "Identify firewall platforms governing hosts and check connectivity rules",
		Long: `firewall-discovery aggregates the host inventory and the policy platform
to answer which firewall platforms govern an application or host, and
whether specific traffic between two endpoints would be permitted.`,
		RunE: runServe,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "One-shot firewall discovery for an application or host",
		RunE:  runDiscover,
	}
	discoverCmd.Flags().StringVar(&discoverApp, "app", "", "Business application name")
	discoverCmd.Flags().StringVar(&discoverHost, "host", "", "Hostname")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "One-shot connectivity rule check between two endpoints",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringVar(&checkSource, "source", "", "Source application name or hostname (required)")
	checkCmd.Flags().StringVar(&checkDestination, "destination", "", "Destination application name or hostname (required)")
	checkCmd.Flags().IntVar(&checkPort, "port", 0, "Destination port (required)")
	checkCmd.Flags().StringVar(&checkProtocol, "protocol", "TCP", "Protocol (TCP/UDP)")
	checkCmd.MarkFlagRequired("source")
	checkCmd.MarkFlagRequired("destination")
	checkCmd.MarkFlagRequired("port")

	rootCmd.AddCommand(serveCmd, discoverCmd, checkCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildServices(cfg config.Config) (*service.DiscoveryService, *service.RuleCheckService) {
	inv := inventory.New(cfg.InventoryAPIURL, cfg.InventoryAPIKey, cfg.APITimeout, cfg.Fallback)
	pol := policy.New(cfg.PolicyAPIURL, cfg.PolicyAPIKey, cfg.APITimeout, cfg.Fallback)
	classifier := service.NewClassifier(pol)
	return service.NewDiscoveryService(inv, classifier), service.NewRuleCheckService(pol)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var audit *storage.Audit
	if cfg.AuditDSN != "" {
		if err := imigrate.Up(cfg.AuditDSN); err != nil {
			return err
		}
		var err error
		audit, err = storage.New(ctx, cfg.AuditDSN)
		if err != nil {
			return err
		}
		defer audit.Close()
	}

	discoverySvc, ruleCheckSvc := buildServices(cfg)

	h := httpapi.NewHandler(discoverySvc, ruleCheckSvc, audit, version)
	handler := cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})(h.Router())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP listening", "addr", srv.Addr, "fallback_mode", string(cfg.Fallback))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-ch:
	}

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(ctxShutdown)
}

func runDiscover(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	discoverySvc, _ := buildServices(cfg)
	result, err := discoverySvc.Discover(context.Background(), discoverApp, discoverHost)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runCheck(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	discoverySvc, ruleCheckSvc := buildServices(cfg)
	ctx := context.Background()

	sourceResult, err := discoverEndpoint(ctx, discoverySvc, checkSource)
	if err != nil {
		return err
	}
	destResult, err := discoverEndpoint(ctx, discoverySvc, checkDestination)
	if err != nil {
		return err
	}

	ruleResults := ruleCheckSvc.CheckConnectivity(ctx, sourceResult, destResult, checkPort, checkProtocol)
	return printJSON(map[string]any{
		"source":                checkSource,
		"destination":           checkDestination,
		"port":                  checkPort,
		"protocol":              checkProtocol,
		"source_firewalls":      sourceResult,
		"destination_firewalls": destResult,
		"rule_results":          ruleResults,
	})
}

func discoverEndpoint(ctx context.Context, svc *service.DiscoveryService, value string) (*domain.DiscoveryResult, error) {
	if httpapi.IsHostname(value) {
		return svc.Discover(ctx, "", value)
	}
	return svc.Discover(ctx, value, "")
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
