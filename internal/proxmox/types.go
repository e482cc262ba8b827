package proxmox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InstanceType is the resource path segment of an instance in the API.
type InstanceType string

const (
	TypeQEMU      InstanceType = "qemu"
	TypeContainer InstanceType = "lxc"
)

type Node struct {
	ID      string  `json:"id"`
	Node    string  `json:"node"`
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     int64   `json:"mem"`
	MaxMem  int64   `json:"maxmem"`
	Disk    int64   `json:"disk"`
	MaxDisk int64   `json:"maxdisk"`
	Uptime  int     `json:"uptime"`
	Level   string  `json:"level"`
	SSLCert string  `json:"ssl_fingerprint"`
}

type Version struct {
	Version string `json:"version"`
	Release string `json:"release"`
	RepoID  string `json:"repoid"`
}

// Instance is a VM or container as listed by nodes/{node}/qemu and
// nodes/{node}/lxc. Decoding is lenient: the API and older releases are not
// consistent about numeric vs string fields.
type Instance struct {
	VMID     string
	Name     string
	Type     InstanceType
	Status   string
	Template bool
	// Tags is empty when the record has no tags or a non-string tags field.
	Tags string
}

func (i *Instance) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode instance: %w", err)
	}

	i.VMID = scalarString(raw["vmid"])
	i.Name = scalarString(raw["name"])
	i.Type = InstanceType(scalarString(raw["type"]))
	i.Status = scalarString(raw["status"])
	i.Template = truthy(scalarString(raw["template"]))
	i.Tags = stringOnly(raw["tags"])

	return nil
}

// TagList splits the tag string. Proxmox joins tags with ";", older
// configurations use ",".
func (i Instance) TagList() []string {
	return SplitTags(i.Tags)
}

func SplitTags(tags string) []string {
	fields := strings.FieldsFunc(tags, func(r rune) bool {
		return r == ',' || r == ';'
	})

	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if tag := strings.TrimSpace(field); tag != "" {
			out = append(out, tag)
		}
	}

	return out
}

// InstanceConfig is the raw nodes/{node}/{type}/{vmid}/config map.
// Numbers are kept as json.Number.
type InstanceConfig map[string]interface{}

// String returns the value of key rendered as a string, and whether it was set.
func (c InstanceConfig) String(key string) (string, bool) {
	value, ok := c[key]
	if !ok || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// AgentInfo is the "result" object of the guest agent info call.
type AgentInfo map[string]interface{}

type NetworkInterface struct {
	Name            string      `json:"name"`
	HardwareAddress string      `json:"hardware-address"`
	IPAddresses     []IPAddress `json:"ip-addresses"`
}

type IPAddress struct {
	Address string `json:"ip-address"`
	Type    string `json:"ip-address-type"`
	Prefix  int    `json:"prefix"`
}

func scalarString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String()
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return ""
}

func stringOnly(data json.RawMessage) string {
	var s string
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

func truthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
