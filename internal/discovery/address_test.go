package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

type staticAgent struct {
	info       proxmox.AgentInfo
	infoErr    error
	interfaces []proxmox.NetworkInterface
	ifaceErr   error
	calls      int
}

func (a *staticAgent) GetAgentInfo(_ context.Context, _ string, _ proxmox.InstanceType, _ string) (proxmox.AgentInfo, error) {
	a.calls++
	return a.info, a.infoErr
}

func (a *staticAgent) GetNetworkInterfaces(_ context.Context, _ string, _ string) ([]proxmox.NetworkInterface, error) {
	a.calls++
	return a.interfaces, a.ifaceErr
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		family  Family
		address string
		want    bool
	}{
		{family: FamilyIPv4, address: "192.0.2.1", want: true},
		{family: FamilyIPv4, address: "10.168.0.1", want: true},
		{family: FamilyIPv4, address: "127.0.0.1"},
		{family: FamilyIPv4, address: "169.254.1.1"},
		{family: FamilyIPv4, address: "not-an-ip"},
		{family: FamilyIPv4, address: "256.1.1.1"},
		{family: FamilyIPv4, address: "2001:db8::1"},
		{family: FamilyIPv6, address: "2001:db8::1234:5678", want: true},
		{family: FamilyIPv6, address: "::", want: true},
		{family: FamilyIPv6, address: "::1"},
		{family: FamilyIPv6, address: "fe80::5054:ff:fe12:3456"},
		{family: FamilyIPv6, address: "192.0.2.1"},
		{family: FamilyIPv6, address: ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.family)+" "+tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAddress(tt.family, tt.address))
		})
	}
}

func TestResolver_Agent(t *testing.T) {
	agent := &staticAgent{
		info: proxmox.AgentInfo{"version": "5.2.0"},
		interfaces: []proxmox.NetworkInterface{
			{
				Name: "lo",
				IPAddresses: []proxmox.IPAddress{
					{Address: "127.0.0.1", Type: "ipv4"},
					{Address: "::1", Type: "ipv6"},
				},
			},
			{
				Name: "eth0",
				IPAddresses: []proxmox.IPAddress{
					{Address: "fe80::1", Type: "ipv6"},
					{Address: "10.168.0.1", Type: "ipv4"},
					{Address: "2001:db8::1", Type: "ipv6"},
				},
			},
			{
				Name: "eth1",
				IPAddresses: []proxmox.IPAddress{
					{Address: "10.168.1.1", Type: "ipv4"},
				},
			},
		},
	}

	resolver := NewResolver(agent, testLogger())
	addresses := resolver.Resolve(context.Background(), "pve1", proxmox.TypeQEMU, "100", proxmox.InstanceConfig{
		"net0": "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0",
	})

	assert.Equal(t, Lookup{Outcome: Found, Address: "10.168.0.1", Source: SourceAgent}, addresses.IPv4)
	assert.Equal(t, Lookup{Outcome: Found, Address: "2001:db8::1", Source: SourceAgent}, addresses.IPv6)
}

func TestResolver_StaticFallback(t *testing.T) {
	agent := &staticAgent{
		info: proxmox.AgentInfo{"version": "5.2.0"},
		interfaces: []proxmox.NetworkInterface{
			{Name: "lo", IPAddresses: []proxmox.IPAddress{{Address: "127.0.0.1", Type: "ipv4"}}},
		},
	}

	resolver := NewResolver(agent, testLogger())
	addresses := resolver.Resolve(context.Background(), "pve1", proxmox.TypeQEMU, "100", proxmox.InstanceConfig{
		"net0": "name=eth0,bridge=vmbr0,ip=192.0.2.25/24,gw=192.0.2.1",
	})

	assert.Equal(t, Lookup{Outcome: Found, Address: "192.0.2.25", Source: SourceNet0}, addresses.IPv4)
	assert.Equal(t, Lookup{Outcome: NotFound}, addresses.IPv6)
}

func TestResolver_FamiliesIndependent(t *testing.T) {
	agent := &staticAgent{
		info: proxmox.AgentInfo{"version": "5.2.0"},
		interfaces: []proxmox.NetworkInterface{
			{Name: "eth0", IPAddresses: []proxmox.IPAddress{{Address: "2001:db8::10", Type: "ipv6"}}},
		},
	}

	resolver := NewResolver(agent, testLogger())
	addresses := resolver.Resolve(context.Background(), "pve1", proxmox.TypeQEMU, "100", proxmox.InstanceConfig{
		"net0":      "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0",
		"ipconfig0": "ip=192.0.2.30/24,gw=192.0.2.1,ip6=2001:db8::30/64",
	})

	assert.Equal(t, Lookup{Outcome: Found, Address: "192.0.2.30", Source: SourceIPConfig0}, addresses.IPv4)
	assert.Equal(t, Lookup{Outcome: Found, Address: "2001:db8::10", Source: SourceAgent}, addresses.IPv6)
}

func TestResolver_AgentUnavailable(t *testing.T) {
	agentErr := errors.New("QEMU guest agent is not running")

	tests := []struct {
		name    string
		agent   *staticAgent
		wantErr error
	}{
		{
			name:    "info error",
			agent:   &staticAgent{infoErr: agentErr},
			wantErr: agentErr,
		},
		{
			name:    "empty info",
			agent:   &staticAgent{},
			wantErr: ErrAgentNotRunning,
		},
		{
			name:    "interfaces error",
			agent:   &staticAgent{info: proxmox.AgentInfo{"version": "5.2.0"}, ifaceErr: agentErr},
			wantErr: agentErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.agent, testLogger())
			addresses := resolver.Resolve(context.Background(), "pve1", proxmox.TypeQEMU, "100", proxmox.InstanceConfig{
				"net0": "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,ip=192.0.2.40/24",
			})

			assert.Equal(t, Found, addresses.IPv4.Outcome)
			assert.Equal(t, "192.0.2.40", addresses.IPv4.Address)

			assert.Equal(t, Unavailable, addresses.IPv6.Outcome)
			assert.Empty(t, addresses.IPv6.Address)
			assert.ErrorIs(t, addresses.IPv6.Err, tt.wantErr)
		})
	}
}

func TestResolver_ContainerSkipsAgent(t *testing.T) {
	agent := &staticAgent{}

	resolver := NewResolver(agent, testLogger())
	addresses := resolver.Resolve(context.Background(), "pve1", proxmox.TypeContainer, "200", proxmox.InstanceConfig{
		"net0": "name=eth0,bridge=vmbr0,hwaddr=AA:BB:CC:DD:EE:FF,ip=192.0.2.50/24,ip6=2001:db8::50/64,type=veth",
	})

	assert.Zero(t, agent.calls)
	assert.Equal(t, Lookup{Outcome: Found, Address: "192.0.2.50", Source: SourceNet0}, addresses.IPv4)
	assert.Equal(t, Lookup{Outcome: Found, Address: "2001:db8::50", Source: SourceNet0}, addresses.IPv6)
}

func TestStaticAddress(t *testing.T) {
	tests := []struct {
		name       string
		family     Family
		config     proxmox.InstanceConfig
		wantAddr   string
		wantSource Source
	}{
		{
			name:       "net0 before ipconfig0",
			family:     FamilyIPv4,
			config:     proxmox.InstanceConfig{"net0": "ip=192.0.2.1/24", "ipconfig0": "ip=192.0.2.2/24"},
			wantAddr:   "192.0.2.1",
			wantSource: SourceNet0,
		},
		{
			name:   "dhcp",
			family: FamilyIPv4,
			config: proxmox.InstanceConfig{"net0": "name=eth0,ip=dhcp,ip6=auto"},
		},
		{
			name:   "hwaddr is not an address",
			family: FamilyIPv6,
			config: proxmox.InstanceConfig{"net0": "name=eth0,hwaddr=AA:BB:CC:DD:EE:FF"},
		},
		{
			name:       "ipv6 from ip6 token",
			family:     FamilyIPv6,
			config:     proxmox.InstanceConfig{"ipconfig0": "ip6=2001:db8::1/64"},
			wantAddr:   "2001:db8::1",
			wantSource: SourceIPConfig0,
		},
		{
			name:   "missing net0",
			family: FamilyIPv4,
			config: proxmox.InstanceConfig{},
		},
		{
			name:   "out of range octet",
			family: FamilyIPv4,
			config: proxmox.InstanceConfig{"net0": "ip=300.1.1.1/24"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, source, ok := staticAddress(tt.family, tt.config)
			assert.Equal(t, tt.wantAddr != "", ok)
			assert.Equal(t, tt.wantAddr, addr)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestLookup_String(t *testing.T) {
	require.Equal(t, "192.0.2.1 (net0)", Lookup{Outcome: Found, Address: "192.0.2.1", Source: SourceNet0}.String())
	require.Equal(t, "not found", Lookup{}.String())
	require.Equal(t, "unavailable", Lookup{Outcome: Unavailable}.String())
}
