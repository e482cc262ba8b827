package proxmox

import (
	"context"
	"fmt"
)

func (c *Client) GetNodes(ctx context.Context) ([]Node, error) {
	c.log.Debug("fetching all nodes")

	var nodes []Node
	if err := c.Get(ctx, "nodes", &nodes); err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}

	c.log.Debugf("Retrieved %d nodes", len(nodes))
	return nodes, nil
}

func (c *Client) GetNodeVMs(ctx context.Context, node string) ([]Instance, error) {
	c.log.Debugf("fetching all vms on node %s", node)

	var vms []Instance
	endpoint := fmt.Sprintf("nodes/%s/qemu", node)
	if err := c.Get(ctx, endpoint, &vms); err != nil {
		return nil, fmt.Errorf("failed to get VMs for node %s: %w", node, err)
	}

	for i := range vms {
		if vms[i].Type == "" {
			vms[i].Type = TypeQEMU
		}
	}

	c.log.Debugf("Retrieved %d VMs for node %s", len(vms), node)
	return vms, nil
}

func (c *Client) GetNodeContainers(ctx context.Context, node string) ([]Instance, error) {
	c.log.Debugf("fetching all containers on node %s", node)

	var containers []Instance
	endpoint := fmt.Sprintf("nodes/%s/lxc", node)
	if err := c.Get(ctx, endpoint, &containers); err != nil {
		return nil, fmt.Errorf("failed to get containers for node %s: %w", node, err)
	}

	for i := range containers {
		if containers[i].Type == "" {
			containers[i].Type = TypeContainer
		}
	}

	c.log.Debugf("Retrieved %d containers for node %s", len(containers), node)
	return containers, nil
}
