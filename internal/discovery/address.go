package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

type Outcome int

const (
	NotFound Outcome = iota
	Found
	// Unavailable means nothing was found and the guest agent could not be
	// queried. Lookup.Err holds the agent failure.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Unavailable:
		return "unavailable"
	default:
		return "not found"
	}
}

type Source string

const (
	SourceAgent     Source = "agent"
	SourceNet0      Source = "net0"
	SourceIPConfig0 Source = "ipconfig0"
)

var ErrAgentNotRunning = errors.New("guest agent returned no info")

type Lookup struct {
	Outcome Outcome
	Address string
	Source  Source
	Err     error
}

type Addresses struct {
	IPv4 Lookup
	IPv6 Lookup
}

var staticPatterns = map[Family]*regexp.Regexp{
	FamilyIPv4: regexp.MustCompile(`(?:^|[,\s])ip=(\d{1,3}(?:\.\d{1,3}){3})`),
	FamilyIPv6: regexp.MustCompile(`(?:^|[,\s])ip6?=([0-9a-fA-F:]*:[0-9a-fA-F:.]*)`),
}

// AgentAPI is the part of the Proxmox client the resolver needs.
type AgentAPI interface {
	GetAgentInfo(ctx context.Context, node string, instanceType proxmox.InstanceType, vmid string) (proxmox.AgentInfo, error)
	GetNetworkInterfaces(ctx context.Context, node string, vmid string) ([]proxmox.NetworkInterface, error)
}

type Resolver struct {
	api AgentAPI
	log logrus.FieldLogger
}

func NewResolver(api AgentAPI, log logrus.FieldLogger) *Resolver {
	return &Resolver{api: api, log: log}
}

// Resolve finds the IPv4 and IPv6 address of one instance. The families are
// resolved independently: the guest agent first (qemu only), then the static
// net0/ipconfig0 settings in config.
func (r *Resolver) Resolve(ctx context.Context, node string, instanceType proxmox.InstanceType, vmid string, config proxmox.InstanceConfig) Addresses {
	var (
		interfaces []proxmox.NetworkInterface
		agentErr   error
	)

	if instanceType == proxmox.TypeQEMU {
		interfaces, agentErr = r.agentInterfaces(ctx, node, vmid)
		if agentErr != nil {
			r.log.Debugf("guest agent of %s on %s unavailable: %v", vmid, node, agentErr)
		}
	}

	return Addresses{
		IPv4: resolveFamily(FamilyIPv4, interfaces, agentErr, config),
		IPv6: resolveFamily(FamilyIPv6, interfaces, agentErr, config),
	}
}

func (r *Resolver) agentInterfaces(ctx context.Context, node, vmid string) ([]proxmox.NetworkInterface, error) {
	info, err := r.api.GetAgentInfo(ctx, node, proxmox.TypeQEMU, vmid)
	if err != nil {
		return nil, err
	}

	if len(info) == 0 {
		return nil, ErrAgentNotRunning
	}

	interfaces, err := r.api.GetNetworkInterfaces(ctx, node, vmid)
	if err != nil {
		return nil, err
	}

	return interfaces, nil
}

func resolveFamily(family Family, interfaces []proxmox.NetworkInterface, agentErr error, config proxmox.InstanceConfig) Lookup {
	if address, ok := agentAddress(family, interfaces); ok {
		return Lookup{Outcome: Found, Address: address, Source: SourceAgent}
	}

	if address, source, ok := staticAddress(family, config); ok {
		return Lookup{Outcome: Found, Address: address, Source: source}
	}

	if agentErr != nil {
		return Lookup{Outcome: Unavailable, Err: agentErr}
	}

	return Lookup{Outcome: NotFound}
}

func agentAddress(family Family, interfaces []proxmox.NetworkInterface) (string, bool) {
	for _, iface := range interfaces {
		for _, address := range iface.IPAddresses {
			if Family(address.Type) != family {
				continue
			}

			if ValidAddress(family, address.Address) {
				return address.Address, true
			}
		}
	}

	return "", false
}

func staticAddress(family Family, config proxmox.InstanceConfig) (string, Source, bool) {
	sources := []Source{SourceNet0}
	if _, ok := config[string(SourceIPConfig0)]; ok {
		sources = append(sources, SourceIPConfig0)
	}

	pattern := staticPatterns[family]

	for _, source := range sources {
		value, ok := config.String(string(source))
		if !ok {
			continue
		}

		for _, match := range pattern.FindAllStringSubmatch(value, -1) {
			if addr, err := netip.ParseAddr(match[1]); err == nil && matchesFamily(family, addr) {
				return match[1], source, true
			}
		}
	}

	return "", "", false
}

// ValidAddress reports whether address parses as family and is neither
// loopback nor link-local.
func ValidAddress(family Family, address string) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}

	if !matchesFamily(family, addr) {
		return false
	}

	return !addr.IsLoopback() && !addr.IsLinkLocalUnicast()
}

func matchesFamily(family Family, addr netip.Addr) bool {
	switch family {
	case FamilyIPv4:
		return addr.Is4()
	case FamilyIPv6:
		return addr.Is6()
	}
	return false
}

func (l Lookup) String() string {
	if l.Outcome == Found {
		return fmt.Sprintf("%s (%s)", l.Address, l.Source)
	}
	return l.Outcome.String()
}
