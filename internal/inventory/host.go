// Package inventory holds the discovered hosts and their Prometheus file
// service discovery representation.
package inventory

import (
	"fmt"

	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// AbsentAddress is rendered for an address family that was not found.
// Relabeling rules downstream match on this literal.
const AbsentAddress = "False"

// Identity is the deduplication key of a host. VMIDs are only unique per type.
type Identity struct {
	Type proxmox.InstanceType
	VMID string
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%s", i.Type, i.VMID)
}

type Host struct {
	VMID     string
	Hostname string
	// IPv4 and IPv6 are empty when absent.
	IPv4   string
	IPv6   string
	Type   proxmox.InstanceType
	Labels *Labels
}

// NewHost builds a host with the labels every target carries.
func NewHost(vmid, hostname, ipv4, ipv6 string, pveType proxmox.InstanceType) *Host {
	host := &Host{
		VMID:     vmid,
		Hostname: hostname,
		IPv4:     ipv4,
		IPv6:     ipv6,
		Type:     pveType,
		Labels:   NewLabels(),
	}

	host.AddLabel("ipv4", addressLabel(ipv4))
	host.AddLabel("ipv6", addressLabel(ipv6))
	host.AddLabel("name", hostname)
	host.AddLabel("type", string(pveType))
	host.AddLabel("vmid", vmid)

	return host
}

func addressLabel(address string) string {
	if address == "" {
		return AbsentAddress
	}
	return address
}

func (h *Host) Identity() Identity {
	return Identity{Type: h.Type, VMID: h.VMID}
}

// AddLabel sets __meta_pve_<key>; dashes and spaces in key become underscores.
func (h *Host) AddLabel(key, value string) {
	h.Labels.Set(LabelKey(key), value)
}

// Equal reports whether every attribute, labels included, matches.
func (h *Host) Equal(other *Host) bool {
	if other == nil {
		return false
	}

	return h.VMID == other.VMID &&
		h.Hostname == other.Hostname &&
		h.IPv4 == other.IPv4 &&
		h.IPv6 == other.IPv6 &&
		h.Type == other.Type &&
		h.Labels.Equal(other.Labels)
}

func (h *Host) Clone() *Host {
	clone := *h
	clone.Labels = h.Labels.Clone()
	return &clone
}

func (h *Host) String() string {
	return fmt.Sprintf("%s(%s): %s %s %s", h.Hostname, h.VMID, h.Type, addressLabel(h.IPv4), addressLabel(h.IPv6))
}

// Target is one element of a file_sd / http_sd document.
type Target struct {
	Targets []string `json:"targets"`
	Labels  *Labels  `json:"labels"`
}

func (h *Host) Target() Target {
	return Target{
		Targets: []string{h.Hostname},
		Labels:  h.Labels,
	}
}
