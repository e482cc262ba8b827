package inventory

import (
	"encoding/json"

	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// HostList keeps hosts in discovery order, unique by Identity.
type HostList struct {
	hosts []*Host
	index map[Identity]int
}

func NewHostList() *HostList {
	return &HostList{index: make(map[Identity]int)}
}

func (l *HostList) Clear() {
	l.hosts = nil
	l.index = make(map[Identity]int)
}

// Add appends host, or replaces the stored host with the same identity in
// place when any attribute differs. It reports whether the list changed.
func (l *HostList) Add(host *Host) bool {
	if l.index == nil {
		l.index = make(map[Identity]int)
	}

	id := host.Identity()
	if pos, ok := l.index[id]; ok {
		if l.hosts[pos].Equal(host) {
			return false
		}
		l.hosts[pos] = host
		return true
	}

	l.index[id] = len(l.hosts)
	l.hosts = append(l.hosts, host)
	return true
}

func (l *HostList) Exists(host *Host) bool {
	_, ok := l.index[host.Identity()]
	return ok
}

func (l *HostList) Get(pveType proxmox.InstanceType, vmid string) (*Host, bool) {
	pos, ok := l.index[Identity{Type: pveType, VMID: vmid}]
	if !ok {
		return nil, false
	}
	return l.hosts[pos], true
}

func (l *HostList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.hosts)
}

// Hosts returns the hosts in order. The slice is a copy.
func (l *HostList) Hosts() []*Host {
	return append([]*Host(nil), l.hosts...)
}

// Equal compares identities only, ignoring order and attributes.
func (l *HostList) Equal(other *HostList) bool {
	if l == nil || other == nil {
		return l.Len() == other.Len()
	}

	if l.Len() != other.Len() {
		return false
	}

	for _, host := range l.hosts {
		if _, ok := other.index[host.Identity()]; !ok {
			return false
		}
	}

	return true
}

// Identical is Equal plus attribute equality for every identity.
func (l *HostList) Identical(other *HostList) bool {
	if !l.Equal(other) {
		return false
	}

	if l == nil || other == nil {
		return true
	}

	for _, host := range l.hosts {
		stored, _ := other.Get(host.Type, host.VMID)
		if !host.Equal(stored) {
			return false
		}
	}

	return true
}

// Clone copies the list and every host in it.
func (l *HostList) Clone() *HostList {
	if l == nil {
		return nil
	}

	clone := NewHostList()
	for _, host := range l.hosts {
		clone.Add(host.Clone())
	}
	return clone
}

func (l *HostList) Targets() []Target {
	targets := make([]Target, 0, l.Len())
	for _, host := range l.hosts {
		targets = append(targets, host.Target())
	}
	return targets
}

func (l *HostList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Targets())
}
