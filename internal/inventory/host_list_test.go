package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

func TestHostList_AddIdempotent(t *testing.T) {
	list := NewHostList()
	host := NewHost("1", "a", "", "", proxmox.TypeQEMU)

	assert.True(t, list.Add(host))
	assert.False(t, list.Add(host))
	assert.False(t, list.Add(NewHost("1", "a", "", "", proxmox.TypeQEMU)))

	assert.Equal(t, 1, list.Len())
}

func TestHostList_AddReplaces(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("1", "a", "", "", proxmox.TypeQEMU))
	list.Add(NewHost("2", "other", "", "", proxmox.TypeQEMU))

	assert.True(t, list.Add(NewHost("1", "b", "", "", proxmox.TypeQEMU)))

	require.Equal(t, 2, list.Len())
	hosts := list.Hosts()
	assert.Equal(t, "b", hosts[0].Hostname)
	assert.Equal(t, "other", hosts[1].Hostname)
}

func TestHostList_IdentityIncludesType(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("100", "shared", "", "", proxmox.TypeQEMU))
	list.Add(NewHost("100", "shared", "", "", proxmox.TypeContainer))

	assert.Equal(t, 2, list.Len())

	vm, ok := list.Get(proxmox.TypeQEMU, "100")
	require.True(t, ok)
	assert.Equal(t, proxmox.TypeQEMU, vm.Type)

	_, ok = list.Get(proxmox.TypeQEMU, "101")
	assert.False(t, ok)
}

func TestHostList_SameNameDifferentVMID(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("100", "web", "", "", proxmox.TypeQEMU))
	list.Add(NewHost("101", "web", "", "", proxmox.TypeQEMU))

	assert.Equal(t, 2, list.Len())
}

func TestHostList_Equal(t *testing.T) {
	first := NewHostList()
	first.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))
	first.Add(NewHost("101", "b", "", "", proxmox.TypeContainer))

	second := NewHostList()
	second.Add(NewHost("101", "b", "", "", proxmox.TypeContainer))
	second.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))

	assert.True(t, first.Equal(second))
	assert.True(t, second.Equal(first))

	t.Run("attributes ignored", func(t *testing.T) {
		renamed := NewHostList()
		renamed.Add(NewHost("100", "renamed", "192.0.2.1", "", proxmox.TypeQEMU))
		renamed.Add(NewHost("101", "b", "", "", proxmox.TypeContainer))

		assert.True(t, first.Equal(renamed))
		assert.False(t, first.Identical(renamed))
	})

	t.Run("different cardinality", func(t *testing.T) {
		single := NewHostList()
		single.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))

		assert.False(t, first.Equal(single))
	})

	t.Run("different type", func(t *testing.T) {
		other := NewHostList()
		other.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))
		other.Add(NewHost("101", "b", "", "", proxmox.TypeQEMU))

		assert.False(t, first.Equal(other))
	})

	t.Run("nil list", func(t *testing.T) {
		var missing *HostList
		assert.False(t, first.Equal(missing))
		assert.True(t, NewHostList().Equal(missing))
		assert.True(t, missing.Equal(NewHostList()))
		assert.True(t, missing.Equal(nil))
		assert.False(t, missing.Equal(first))
		assert.False(t, missing.Identical(first))
		assert.True(t, missing.Identical(NewHostList()))
	})
}

func TestHostList_Identical(t *testing.T) {
	build := func() *HostList {
		list := NewHostList()
		host := NewHost("100", "a", "192.0.2.1", "", proxmox.TypeQEMU)
		host.AddLabel("status", "running")
		list.Add(host)
		return list
	}

	assert.True(t, build().Identical(build()))

	changed := build()
	host := NewHost("100", "a", "192.0.2.1", "", proxmox.TypeQEMU)
	host.AddLabel("status", "stopped")
	changed.Add(host)

	assert.True(t, build().Equal(changed))
	assert.False(t, build().Identical(changed))
}

func TestHostList_Clone(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("100", "a", "192.0.2.1", "", proxmox.TypeQEMU))
	list.Add(NewHost("101", "b", "", "", proxmox.TypeContainer))

	clone := list.Clone()
	require.True(t, clone.Identical(list))

	host, ok := clone.Get(proxmox.TypeQEMU, "100")
	require.True(t, ok)
	host.AddLabel("status", "stopped")

	assert.False(t, clone.Identical(list))
	assert.True(t, clone.Equal(list))

	original, _ := list.Get(proxmox.TypeQEMU, "100")
	_, found := original.Labels.Get(LabelKey("status"))
	assert.False(t, found)

	var missing *HostList
	assert.Nil(t, missing.Clone())
}

func TestHostList_Clear(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))
	list.Clear()

	assert.Equal(t, 0, list.Len())
	assert.False(t, list.Exists(NewHost("100", "a", "", "", proxmox.TypeQEMU)))

	list.Add(NewHost("101", "b", "", "", proxmox.TypeQEMU))
	assert.Equal(t, 1, list.Len())
}

func TestHostList_HostsCopy(t *testing.T) {
	list := NewHostList()
	list.Add(NewHost("100", "a", "", "", proxmox.TypeQEMU))

	hosts := list.Hosts()
	hosts[0] = nil

	assert.NotNil(t, list.Hosts()[0])
}

func TestHostList_MarshalJSON(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		data, err := json.Marshal(NewHostList())
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("hosts", func(t *testing.T) {
		list := NewHostList()
		list.Add(NewHost("100", "web01", "192.0.2.1", "", proxmox.TypeQEMU))
		list.Add(NewHost("200", "ct01", "", "2001:db8::1", proxmox.TypeContainer))

		data, err := json.Marshal(list)
		require.NoError(t, err)

		var decoded []struct {
			Targets []string          `json:"targets"`
			Labels  map[string]string `json:"labels"`
		}
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded, 2)

		assert.Equal(t, []string{"web01"}, decoded[0].Targets)
		assert.Equal(t, "False", decoded[0].Labels["__meta_pve_ipv6"])
		assert.Equal(t, []string{"ct01"}, decoded[1].Targets)
		assert.Equal(t, "lxc", decoded[1].Labels["__meta_pve_type"])
		assert.Equal(t, "2001:db8::1", decoded[1].Labels["__meta_pve_ipv6"])
	})
}
