package consul

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
)

// GetPVENodesURL returns https://address:port for every passing instance of
// service.
func (c *Consul) GetPVENodesURL(service string) ([]string, error) {
	entries, _, err := c.client.Health().Service(service, "", true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get service '%s' error: %w", service, err)
	}

	resp := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.Checks.AggregatedStatus() != api.HealthPassing {
			continue
		}

		address := entry.Service.Address
		if address == "" {
			address = entry.Node.Address
		}

		resp = append(resp, "https://"+net.JoinHostPort(address, strconv.Itoa(entry.Service.Port)))
	}

	if len(resp) == 0 {
		return nil, fmt.Errorf("no healthy nodes found for service '%s'", service)
	}

	return resp, nil
}
