package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vitalvas/prometheus-pve-sd/internal/discovery"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// ProxmoxConfig builds the API client settings from the pve section.
func (c *Config) ProxmoxConfig() (*proxmox.Config, error) {
	pveConfig := proxmox.NewConfig()
	pveConfig.Timeout = time.Duration(c.PVE.AuthTimeout) * time.Second
	pveConfig.TLS.InsecureSkipVerify = !c.PVE.VerifySSL
	pveConfig.RateLimit = c.PVE.RateLimit

	for _, server := range ParseList(c.PVE.Server) {
		endpoint, err := proxmox.NormalizeEndpoint(server)
		if err != nil {
			return nil, &ConfigError{Message: "invalid pve.server", Err: err}
		}
		pveConfig.Endpoints = append(pveConfig.Endpoints, endpoint)
	}

	pveConfig.Auth.Username = c.PVE.User
	if c.PVE.Password != "" {
		pveConfig.Auth.Method = "password"
		pveConfig.Auth.Password = c.PVE.Password
	} else {
		pveConfig.Auth.Method = "token"
		pveConfig.Auth.TokenName = c.PVE.TokenName
		pveConfig.Auth.TokenValue = c.PVE.TokenValue
	}

	return pveConfig, nil
}

func (c *Config) Policy() discovery.Policy {
	return discovery.Policy{
		IncludeVMIDs:  c.IncludeVMID,
		IncludeTags:   c.IncludeTags,
		ExcludeVMIDs:  c.ExcludeVMID,
		ExcludeStates: c.ExcludeState,
		ExcludeTags:   c.ExcludeTags,
	}
}

func (c *Config) MetricsAddress() string {
	return net.JoinHostPort(c.Metrics.Address, strconv.Itoa(c.Metrics.Port))
}

func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.LoopDelay) * time.Second
}

// String renders the effective settings with secrets masked.
func (c *Config) String() string {
	mask := func(value string) string {
		if value == "" {
			return ""
		}
		return "***"
	}

	return fmt.Sprintf(
		"output_file=%s loop_delay=%d service=%t pve.server=%s pve.user=%s pve.password=%s pve.token_name=%s pve.token_value=%s include_vmid=[%s] include_tags=[%s] exclude_vmid=[%s] exclude_state=[%s] exclude_tags=[%s]",
		c.OutputFile, c.LoopDelay, c.Service, c.PVE.Server, c.PVE.User,
		mask(c.PVE.Password), c.PVE.TokenName, mask(c.PVE.TokenValue),
		strings.Join(c.IncludeVMID, ","), strings.Join(c.IncludeTags, ","),
		strings.Join(c.ExcludeVMID, ","), strings.Join(c.ExcludeState, ","), strings.Join(c.ExcludeTags, ","),
	)
}
