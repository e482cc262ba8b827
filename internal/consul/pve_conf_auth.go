package consul

import (
	"encoding/json"
	"fmt"
)

type proxmoxAuth struct {
	User  string `json:"user"`
	Token string `json:"token"`
}

// GetPVEAuthToken reads {"user": "...", "token": "NAME=VALUE"} from key and
// returns the USER!NAME=VALUE API token.
func (c *Consul) GetPVEAuthToken(key string) (string, error) {
	kv := c.client.KV()

	pair, _, err := kv.Get(key, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get auth token from consul: %w", err)
	}

	if pair == nil {
		return "", fmt.Errorf("auth token not found in consul key '%s'", key)
	}

	var auth proxmoxAuth

	if err = json.Unmarshal(pair.Value, &auth); err != nil {
		return "", fmt.Errorf("failed to unmarshal auth token: %w", err)
	}

	if auth.User == "" || auth.Token == "" {
		return "", fmt.Errorf("auth token in consul key '%s' is incomplete", key)
	}

	return fmt.Sprintf("%s!%s", auth.User, auth.Token), nil
}
