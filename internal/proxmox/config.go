package proxmox

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const defaultPort = "8006"

type Config struct {
	Endpoints []string
	Auth      AuthConfig
	TLS       TLSConfig
	Timeout   time.Duration
	// RateLimit caps requests per second. Zero disables the limiter.
	RateLimit float64
}

type AuthConfig struct {
	Method     string
	Username   string
	Password   string
	TokenName  string
	TokenValue string
	// APIToken is the full USER@REALM!TOKENID=SECRET form. It takes
	// precedence over Username/TokenName/TokenValue when set.
	APIToken string
}

type TLSConfig struct {
	InsecureSkipVerify bool
}

func NewConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		TLS: TLSConfig{
			InsecureSkipVerify: false,
		},
		Auth: AuthConfig{
			Method: "token",
		},
	}
}

func (c *Config) token() string {
	if c.Auth.APIToken != "" {
		return c.Auth.APIToken
	}

	return fmt.Sprintf("%s!%s=%s", c.Auth.Username, c.Auth.TokenName, c.Auth.TokenValue)
}

func (c *Config) validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no endpoints specified")
	}

	switch c.Auth.Method {
	case "token":
		if c.Auth.APIToken != "" {
			return nil
		}
		if c.Auth.Username == "" || c.Auth.TokenName == "" || c.Auth.TokenValue == "" {
			return fmt.Errorf("username, token_name and token_value are required when method is 'token'")
		}
		if c.Auth.Password != "" {
			return fmt.Errorf("password and token are mutually exclusive")
		}
	case "password":
		if c.Auth.Username == "" || c.Auth.Password == "" {
			return fmt.Errorf("username and password are required when method is 'password'")
		}
		if c.Auth.TokenName != "" || c.Auth.TokenValue != "" || c.Auth.APIToken != "" {
			return fmt.Errorf("password and token are mutually exclusive")
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.Auth.Method)
	}

	return nil
}

// NormalizeEndpoint turns "pve.example.com" into "https://pve.example.com:8006".
// Values that already carry a scheme keep it; a missing port defaults to 8006.
func NormalizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("empty endpoint")
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %s: missing host", endpoint)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}
