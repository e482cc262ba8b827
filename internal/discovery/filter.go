package discovery

import (
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// Policy selects the instances that become targets. Empty include lists
// allow everything.
type Policy struct {
	IncludeVMIDs  []string
	IncludeTags   []string
	ExcludeVMIDs  []string
	ExcludeStates []string
	ExcludeTags   []string
}

type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	set := make(stringSet, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

func (s stringSet) has(value string) bool {
	_, ok := s[value]
	return ok
}

func (s stringSet) intersects(values []string) bool {
	for _, value := range values {
		if s.has(value) {
			return true
		}
	}
	return false
}

type Filter struct {
	includeVMIDs  stringSet
	includeTags   stringSet
	excludeVMIDs  stringSet
	excludeStates stringSet
	excludeTags   stringSet
}

func NewFilter(policy Policy) *Filter {
	return &Filter{
		includeVMIDs:  newStringSet(policy.IncludeVMIDs),
		includeTags:   newStringSet(policy.IncludeTags),
		excludeVMIDs:  newStringSet(policy.ExcludeVMIDs),
		excludeStates: newStringSet(policy.ExcludeStates),
		excludeTags:   newStringSet(policy.ExcludeTags),
	}
}

// Allow evaluates the rules in order: include-id, include-tag, template,
// exclude-state, exclude-id, exclude-tag.
func (f *Filter) Allow(instance proxmox.Instance) bool {
	tags := instance.TagList()

	if len(f.includeVMIDs) > 0 && !f.includeVMIDs.has(instance.VMID) {
		return false
	}

	if len(f.includeTags) > 0 && (len(tags) == 0 || !f.includeTags.intersects(tags)) {
		return false
	}

	if instance.Template {
		return false
	}

	if f.excludeStates.has(instance.Status) {
		return false
	}

	if f.excludeVMIDs.has(instance.VMID) {
		return false
	}

	if f.excludeTags.intersects(tags) {
		return false
	}

	return true
}

// Apply returns the allowed instances in their original order.
func (f *Filter) Apply(instances []proxmox.Instance) []proxmox.Instance {
	filtered := make([]proxmox.Instance, 0, len(instances))
	for _, instance := range instances {
		if f.Allow(instance) {
			filtered = append(filtered, instance)
		}
	}
	return filtered
}
