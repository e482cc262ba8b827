package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

func testInstances() []proxmox.Instance {
	return []proxmox.Instance{
		{VMID: "100", Name: "100.example.com", Status: "running", Tags: "unmonitored,excluded,postgres"},
		{VMID: "101", Name: "101.example.com", Status: "running"},
		{VMID: "102", Name: "102.example.com", Status: "prelaunch", Tags: "monitored"},
	}
}

func vmids(instances []proxmox.Instance) []string {
	out := make([]string, 0, len(instances))
	for _, instance := range instances {
		out = append(out, instance.VMID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []string
	}{
		{
			name: "empty policy",
			want: []string{"100", "101", "102"},
		},
		{
			name:   "include tags",
			policy: Policy{IncludeTags: []string{"monitored", "postgres"}},
			want:   []string{"100", "102"},
		},
		{
			name:   "include vmid",
			policy: Policy{IncludeVMIDs: []string{"101"}},
			want:   []string{"101"},
		},
		{
			name:   "exclude vmid",
			policy: Policy{ExcludeVMIDs: []string{"100", "101"}},
			want:   []string{"102"},
		},
		{
			name:   "exclude state",
			policy: Policy{ExcludeStates: []string{"prelaunch"}},
			want:   []string{"100", "101"},
		},
		{
			name:   "exclude tags",
			policy: Policy{ExcludeTags: []string{"excluded"}},
			want:   []string{"101", "102"},
		},
		{
			name: "exclude wins over include vmid",
			policy: Policy{
				IncludeVMIDs: []string{"100", "102"},
				ExcludeVMIDs: []string{"100"},
			},
			want: []string{"102"},
		},
		{
			name: "exclude tag wins over include tag",
			policy: Policy{
				IncludeTags: []string{"postgres", "monitored"},
				ExcludeTags: []string{"unmonitored"},
			},
			want: []string{"102"},
		},
		{
			name:   "include tag never matches untagged",
			policy: Policy{IncludeTags: []string{""}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewFilter(tt.policy)
			assert.Equal(t, tt.want, vmids(filter.Apply(testInstances())))
		})
	}
}

func TestFilter_Templates(t *testing.T) {
	template := proxmox.Instance{VMID: "900", Name: "template", Status: "stopped", Template: true, Tags: "monitored"}

	policies := []Policy{
		{},
		{IncludeVMIDs: []string{"900"}},
		{IncludeTags: []string{"monitored"}},
		{IncludeVMIDs: []string{"900"}, IncludeTags: []string{"monitored"}},
	}

	for _, policy := range policies {
		assert.False(t, NewFilter(policy).Allow(template))
	}
}

func TestFilter_ApplyCopies(t *testing.T) {
	instances := testInstances()
	filtered := NewFilter(Policy{}).Apply(instances)

	filtered[0].Name = "changed"
	assert.Equal(t, "100.example.com", instances[0].Name)
}

func TestFilter_SemicolonTags(t *testing.T) {
	instance := proxmox.Instance{VMID: "200", Status: "running", Tags: "web;prod"}

	assert.True(t, NewFilter(Policy{IncludeTags: []string{"prod"}}).Allow(instance))
	assert.False(t, NewFilter(Policy{ExcludeTags: []string{"web"}}).Allow(instance))
}
