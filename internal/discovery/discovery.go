// Package discovery builds the host inventory of a Proxmox VE cluster.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// API is the read-only part of the Proxmox client used by a discovery pass.
type API interface {
	AgentAPI
	GetNodes(ctx context.Context) ([]proxmox.Node, error)
	GetNodeVMs(ctx context.Context, node string) ([]proxmox.Instance, error)
	GetNodeContainers(ctx context.Context, node string) ([]proxmox.Instance, error)
	GetInstanceConfig(ctx context.Context, node string, instanceType proxmox.InstanceType, vmid string) (proxmox.InstanceConfig, error)
}

// configLabels maps label names to the instance config keys they are read from.
var configLabels = []struct {
	label string
	key   string
}{
	{label: "cpu", key: "sockets"},
	{label: "cores", key: "cores"},
	{label: "memory", key: "memory"},
}

type Discovery struct {
	api      API
	filter   *Filter
	resolver *Resolver
	log      logrus.FieldLogger
}

func New(api API, policy Policy, log logrus.FieldLogger) *Discovery {
	return &Discovery{
		api:      api,
		filter:   NewFilter(policy),
		resolver: NewResolver(api, log),
		log:      log,
	}
}

// Propagate runs one discovery pass. Any failure to list nodes, instances or
// instance configs aborts the pass and no partial inventory is returned.
func (d *Discovery) Propagate(ctx context.Context) (*inventory.HostList, error) {
	timer := prometheus.NewTimer(propagateSeconds)
	defer timer.ObserveDuration()

	nodes, err := d.api.GetNodes(ctx)
	if err != nil {
		return nil, proxmox.WrapAPIError(err)
	}

	hosts := inventory.NewHostList()

	for _, node := range nodes {
		instances, err := d.nodeInstances(ctx, node.Node)
		if err != nil {
			return nil, err
		}

		d.log.Infof("Found %d targets on node %s", len(instances), node.Node)

		for _, instance := range instances {
			host, err := d.buildHost(ctx, node.Node, instance)
			if err != nil {
				return nil, err
			}

			hosts.Add(host)
			d.log.Debugf("Discovered %s", host)
		}
	}

	hostsGauge.Set(float64(hosts.Len()))

	return hosts, nil
}

// nodeInstances returns the filtered VMs followed by the filtered containers
// of node, unique by type and VMID.
func (d *Discovery) nodeInstances(ctx context.Context, node string) ([]proxmox.Instance, error) {
	vms, err := d.api.GetNodeVMs(ctx, node)
	if err != nil {
		return nil, proxmox.WrapAPIError(err)
	}

	containers, err := d.api.GetNodeContainers(ctx, node)
	if err != nil {
		return nil, proxmox.WrapAPIError(err)
	}

	merged := append(d.filter.Apply(vms), d.filter.Apply(containers)...)

	instances := make([]proxmox.Instance, 0, len(merged))
	index := make(map[inventory.Identity]int, len(merged))

	for _, instance := range merged {
		id := inventory.Identity{Type: instanceType(instance), VMID: instance.VMID}
		if pos, ok := index[id]; ok {
			instances[pos] = instance
			continue
		}

		index[id] = len(instances)
		instances = append(instances, instance)
	}

	return instances, nil
}

func (d *Discovery) buildHost(ctx context.Context, node string, instance proxmox.Instance) (*inventory.Host, error) {
	pveType := instanceType(instance)

	config, err := d.api.GetInstanceConfig(ctx, node, pveType, instance.VMID)
	if err != nil {
		return nil, proxmox.WrapAPIError(err)
	}

	metadata := parseDescription(config)
	addresses := d.resolver.Resolve(ctx, node, pveType, instance.VMID, config)

	d.log.WithFields(logrus.Fields{
		"vmid": instance.VMID,
		"node": node,
		"ipv4": addresses.IPv4.String(),
		"ipv6": addresses.IPv6.String(),
	}).Debug("resolved addresses")

	host := inventory.NewHost(instance.VMID, instance.Name, addresses.IPv4.Address, addresses.IPv6.Address, pveType)

	for _, item := range configLabels {
		if value, ok := config.String(item.key); ok {
			host.AddLabel(item.label, value)
		}
	}

	if instance.Status != "" {
		host.AddLabel("status", instance.Status)
	}

	if instance.Tags != "" {
		host.AddLabel("tags", instance.Tags)
	}

	if groups, ok := metadata["groups"]; ok {
		host.AddLabel("groups", joinGroups(groups))
	}

	return host, nil
}

func instanceType(instance proxmox.Instance) proxmox.InstanceType {
	if instance.Type == "" {
		return proxmox.TypeQEMU
	}
	return instance.Type
}

// parseDescription decodes the instance description as a JSON object. Plain
// text descriptions are kept under "notes".
func parseDescription(config proxmox.InstanceConfig) map[string]interface{} {
	description, ok := config.String("description")
	if !ok {
		return map[string]interface{}{}
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(description), &metadata); err != nil || metadata == nil {
		return map[string]interface{}{"notes": description}
	}

	return metadata
}

func joinGroups(groups interface{}) string {
	switch v := groups.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, group := range v {
			parts = append(parts, fmt.Sprint(group))
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
