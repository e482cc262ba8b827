// Package consul resolves Proxmox API endpoints and credentials from Consul.
package consul

import (
	"github.com/hashicorp/consul/api"
)

type Consul struct {
	client *api.Client
}

// New connects to address, or to the agent named by the CONSUL_HTTP_*
// environment when address is empty.
func New(address string) (*Consul, error) {
	consulConfig := api.DefaultConfig()
	if address != "" {
		consulConfig.Address = address
	}

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	return &Consul{
		client: client,
	}, nil
}
