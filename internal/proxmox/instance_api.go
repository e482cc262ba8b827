package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
)

func (c *Client) GetInstanceConfig(ctx context.Context, node string, instanceType InstanceType, vmid string) (InstanceConfig, error) {
	c.log.Debugf("fetching instance config for %s on %s", vmid, node)

	var config InstanceConfig
	endpoint := fmt.Sprintf("nodes/%s/%s/%s/config", node, instanceType, vmid)
	if err := c.Get(ctx, endpoint, &config); err != nil {
		return nil, fmt.Errorf("failed to get config for %s %s on node %s: %w", instanceType, vmid, node, err)
	}

	if config == nil {
		config = InstanceConfig{}
	}

	return config, nil
}

// GetAgentInfo returns the guest agent info. A nil result without error means
// the agent answered with nothing usable.
func (c *Client) GetAgentInfo(ctx context.Context, node string, instanceType InstanceType, vmid string) (AgentInfo, error) {
	c.log.Debugf("fetching agent info for %s on %s", vmid, node)

	var resp struct {
		Result json.RawMessage `json:"result"`
	}

	endpoint := fmt.Sprintf("nodes/%s/%s/%s/agent/info", node, instanceType, vmid)
	if err := c.Get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to get agent info for %s on node %s: %w", vmid, node, err)
	}

	var info AgentInfo
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &info); err != nil {
			return nil, fmt.Errorf("failed to decode agent info for %s on node %s: %w", vmid, node, newAPIError(err))
		}
	}

	return info, nil
}

// GetNetworkInterfaces queries the guest agent, so it only works for qemu.
func (c *Client) GetNetworkInterfaces(ctx context.Context, node string, vmid string) ([]NetworkInterface, error) {
	c.log.Debugf("fetching network interfaces for %s on %s", vmid, node)

	var resp struct {
		Result []NetworkInterface `json:"result"`
	}

	endpoint := fmt.Sprintf("nodes/%s/%s/%s/agent/network-get-interfaces", node, TypeQEMU, vmid)
	if err := c.Get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to get network interfaces for %s on node %s: %w", vmid, node, err)
	}

	return resp.Result, nil
}
