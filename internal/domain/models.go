package domain

import "encoding/json"

// FirewallPlatform identifies one of the firewall platforms a host can be
// governed by. The set is closed today; new platforms are added by
// registering a classification rule and a connectivity check, not by
// touching the orchestration code.
type FirewallPlatform string

const (
	ExternalCheckpoint FirewallPlatform = "external_checkpoint"
	InternalCheckpoint FirewallPlatform = "internal_checkpoint"
	Illumio            FirewallPlatform = "illumio"
	NSX                FirewallPlatform = "nsx"
)

// Platforms returns all known platforms in a stable order.
func Platforms() []FirewallPlatform {
	return []FirewallPlatform{ExternalCheckpoint, InternalCheckpoint, Illumio, NSX}
}

// UnknownIP is the sentinel the inventory provider uses for hosts without a
// usable address.
const UnknownIP = "unknown"

// Workload operating modes reported by the policy provider.
const (
	ModeEnforced       = "enforced"
	ModeVisibilityOnly = "visibility_only"
	ModeIdle           = "idle"
	ModeUnknown        = "unknown"
)

// HostRecord is a single inventory entry. Attribute comparisons downstream
// are case-insensitive; IPAddress may be empty or the "unknown" sentinel.
type HostRecord struct {
	Hostname    string `json:"hostname"`
	Location    string `json:"location"`
	NetworkZone string `json:"network_zone"`
	Platform    string `json:"platform"`
	OSType      string `json:"os_type"`
	IPAddress   string `json:"ip_address"`
}

// PlatformDetail explains why a platform applies to a host.
type PlatformDetail struct {
	Reason        string `json:"reason"`
	PlatformLabel string `json:"platform"`
	OperatingMode string `json:"operating_mode,omitempty"`
}

// ClassifiedHost is a HostRecord after classification. Attribute values are
// upper-cased copies of the inventory record.
type ClassifiedHost struct {
	Hostname            string                              `json:"hostname"`
	Location            string                              `json:"location"`
	NetworkZone         string                              `json:"network_zone"`
	Platform            string                              `json:"platform"`
	OSType              string                              `json:"os_type"`
	IPAddress           string                              `json:"ip_address"`
	ApplicableFirewalls []FirewallPlatform                  `json:"applicable_firewalls"`
	FirewallDetails     map[FirewallPlatform]PlatformDetail `json:"firewall_details"`
}

// Governs reports whether the given platform applies to this host.
func (h ClassifiedHost) Governs(p FirewallPlatform) bool {
	for _, fw := range h.ApplicableFirewalls {
		if fw == p {
			return true
		}
	}
	return false
}

// PlatformSummary marks, per platform, whether at least one host in a
// discovery result is governed by it.
type PlatformSummary map[FirewallPlatform]bool

// NewPlatformSummary returns a summary with every known platform set false.
func NewPlatformSummary() PlatformSummary {
	s := make(PlatformSummary, len(Platforms()))
	for _, p := range Platforms() {
		s[p] = false
	}
	return s
}

// Merge ORs the host's applicable platforms into the summary.
func (s PlatformSummary) Merge(h ClassifiedHost) {
	for _, p := range h.ApplicableFirewalls {
		s[p] = true
	}
}

// DiscoveryResult is the outcome of resolving an application name or a
// hostname into classified hosts. It serializes to one of three wire
// shapes; see MarshalJSON.
type DiscoveryResult struct {
	ApplicationName string
	Hostname        string
	Found           bool
	Hosts           []ClassifiedHost
	Summary         PlatformSummary
}

// MarshalJSON emits the three distinct wire shapes:
//
//	application: {"application_name", "hosts", "summary"} (hosts may be [])
//	host found:  {"hostname", "found": true, "hosts", "summary"}
//	host miss:   {"hostname", "found": false, "applicable_firewalls": []}
//
// The not-found shape deliberately carries no hosts/summary keys.
func (r DiscoveryResult) MarshalJSON() ([]byte, error) {
	if r.ApplicationName != "" {
		hosts := r.Hosts
		if hosts == nil {
			hosts = []ClassifiedHost{}
		}
		return json.Marshal(struct {
			ApplicationName string           `json:"application_name"`
			Hosts           []ClassifiedHost `json:"hosts"`
			Summary         PlatformSummary  `json:"summary"`
		}{r.ApplicationName, hosts, r.Summary})
	}
	if !r.Found {
		return json.Marshal(struct {
			Hostname            string             `json:"hostname"`
			Found               bool               `json:"found"`
			ApplicableFirewalls []FirewallPlatform `json:"applicable_firewalls"`
		}{r.Hostname, false, []FirewallPlatform{}})
	}
	return json.Marshal(struct {
		Hostname string           `json:"hostname"`
		Found    bool             `json:"found"`
		Hosts    []ClassifiedHost `json:"hosts"`
		Summary  PlatformSummary  `json:"summary"`
	}{r.Hostname, true, r.Hosts, r.Summary})
}

// RuleEndpoint is one side of a policy rule: a label, or an IP range.
type RuleEndpoint struct {
	Label   string `json:"label,omitempty"`
	IPRange string `json:"ip_range,omitempty"`
}

// RuleService is the port/protocol pair a rule covers.
type RuleService struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// Rule is a configured policy rule as returned by a rule search.
type Rule struct {
	RuleID       string         `json:"rule_id"`
	RuleName     string         `json:"rule_name"`
	Enabled      bool           `json:"enabled"`
	Sources      []RuleEndpoint `json:"sources,omitempty"`
	Destinations []RuleEndpoint `json:"destinations,omitempty"`
	Services     []RuleService  `json:"services,omitempty"`
	Action       string         `json:"action"`
}

// PolicyDecision is the allow/deny verdict for a single flow.
type PolicyDecision struct {
	Allowed      bool   `json:"allowed"`
	Decision     string `json:"decision"`
	MatchedRules []Rule `json:"matched_rules"`
}

// WorkloadInterface is a network interface on a managed workload.
type WorkloadInterface struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
}

// Workload is the policy provider's record for a managed host.
type Workload struct {
	Hostname      string              `json:"hostname"`
	OperatingMode string              `json:"operating_mode"`
	PolicyState   string              `json:"policy_state,omitempty"`
	Interfaces    []WorkloadInterface `json:"interfaces,omitempty"`
}

// CheckStatus is the state of one platform slot in a connectivity result.
type CheckStatus string

const (
	CheckSuccess        CheckStatus = "success"
	CheckError          CheckStatus = "error"
	CheckNotImplemented CheckStatus = "not_implemented"
)

// RuleCheckResult is the outcome of checking one platform for a flow.
type RuleCheckResult struct {
	Status        CheckStatus
	Message       string
	SourceIP      string
	DestIP        string
	Port          int
	Protocol      string
	PolicyCheck   *PolicyDecision
	MatchingRules []Rule
}

// MarshalJSON emits the success shape in full and collapses error and
// not_implemented outcomes to {"status", "message"}.
func (r RuleCheckResult) MarshalJSON() ([]byte, error) {
	if r.Status != CheckSuccess {
		return json.Marshal(struct {
			Status  CheckStatus `json:"status"`
			Message string      `json:"message"`
		}{r.Status, r.Message})
	}
	rules := r.MatchingRules
	if rules == nil {
		rules = []Rule{}
	}
	return json.Marshal(struct {
		Status        CheckStatus     `json:"status"`
		SourceIP      string          `json:"source_ip"`
		DestIP        string          `json:"dest_ip"`
		Port          int             `json:"port"`
		Protocol      string          `json:"protocol"`
		PolicyCheck   *PolicyDecision `json:"policy_check"`
		MatchingRules []Rule          `json:"matching_rules"`
		RuleCount     int             `json:"rule_count"`
	}{r.Status, r.SourceIP, r.DestIP, r.Port, r.Protocol, r.PolicyCheck, rules, len(rules)})
}

// ConnectivityResult maps every known platform to its rule-check outcome.
// A nil entry means the platform applies to neither endpoint.
type ConnectivityResult map[FirewallPlatform]*RuleCheckResult

// AuditEntry is one row of the optional request audit trail.
type AuditEntry struct {
	ID          int64  `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Target      string `json:"target,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Port        int    `json:"port,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	Outcome     string `json:"outcome"`
	CreatedAt   string `json:"created_at,omitempty"`
}
