package proxmox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
	authTicket string
	csrfToken  string
}

type APIResponse struct {
	Data json.RawMessage `json:"data"`
}

func NewClient(config *Config, log logrus.FieldLogger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.TLS.InsecureSkipVerify, //nolint:gosec // configurable for self-signed PVE certificates
		},
	}

	client := &Client{
		config: config,
		log:    log,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}

	if config.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return client
}

func (c *Client) getRandomEndpoint() string {
	if len(c.config.Endpoints) == 0 {
		return ""
	}
	return c.config.Endpoints[rand.Intn(len(c.config.Endpoints))]
}

func (c *Client) buildURL(endpoint string) string {
	baseURL := c.getRandomEndpoint()
	if baseURL == "" {
		return ""
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		c.log.Errorf("Failed to parse base URL %s: %v", baseURL, err)
		return ""
	}

	u.Path = path.Join(u.Path, "api2/json", endpoint)
	return u.String()
}

// Authenticate establishes the session used by every later request. With
// password auth it obtains a ticket; with token auth it verifies the token.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.config.validate(); err != nil {
		return &AuthError{Server: strings.Join(c.config.Endpoints, ","), User: c.config.Auth.Username, Err: err}
	}

	c.log.Debugf("Trying to authenticate against %s as user %s", strings.Join(c.config.Endpoints, ","), c.config.Auth.Username)

	var err error
	if c.config.Auth.Method == "token" {
		c.log.Debug("Using token login")
		var version Version
		err = c.Get(ctx, "version", &version)
	} else {
		err = c.login(ctx)
	}

	if err != nil {
		return &AuthError{Server: strings.Join(c.config.Endpoints, ","), User: c.config.Auth.Username, Err: err}
	}

	c.log.Debug("Successfully authenticated")
	return nil
}

func (c *Client) login(ctx context.Context) error {
	data := url.Values{}
	data.Set("username", c.config.Auth.Username)
	data.Set("password", c.config.Auth.Password)

	var ticket struct {
		Ticket    string `json:"ticket"`
		CSRFToken string `json:"CSRFPreventionToken"`
	}

	if err := c.do(ctx, http.MethodPost, "access/ticket", strings.NewReader(data.Encode()), false, &ticket); err != nil {
		return err
	}

	if ticket.Ticket == "" {
		return &APIError{Message: "empty ticket in authentication response"}
	}

	c.authTicket = ticket.Ticket
	c.csrfToken = ticket.CSRFToken

	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader, auth bool) (*http.Response, error) {
	url := c.buildURL(endpoint)
	if url == "" {
		return nil, &APIError{Message: fmt.Sprintf("failed to build URL for endpoint: %s", endpoint)}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newAPIError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, newAPIError(fmt.Errorf("failed to create request: %w", err))
	}

	if auth {
		if err := c.setAuthHeaders(req); err != nil {
			return nil, newAPIError(fmt.Errorf("failed to set auth headers: %w", err))
		}
	}

	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.log.Debugf("Making %s request to %s", method, url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newAPIError(fmt.Errorf("request failed: %w", err))
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = statusReason(resp)
		}
		apiErr.Status = resp.StatusCode

		return nil, apiErr
	}

	return resp, nil
}

// statusReason returns the reason phrase, which is where Proxmox puts its
// error message ("500 QEMU guest agent is not running").
func statusReason(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return reason
}

func (c *Client) setAuthHeaders(req *http.Request) error {
	switch c.config.Auth.Method {
	case "token":
		req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s", c.config.token()))
	case "password":
		if c.authTicket == "" {
			return fmt.Errorf("not authenticated")
		}
		req.Header.Set("Cookie", fmt.Sprintf("PVEAuthCookie=%s", c.authTicket))
		if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodDelete {
			req.Header.Set("CSRFPreventionToken", c.csrfToken)
		}
	default:
		return fmt.Errorf("unsupported auth method: %s", c.config.Auth.Method)
	}
	return nil
}

// do performs one request and accounts for it in the request counters.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, auth bool, result interface{}) error {
	requestsTotal.Inc()

	err := c.roundTrip(ctx, method, endpoint, body, auth, result)
	if err != nil {
		requestErrorsTotal.Inc()
	}

	return err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body io.Reader, auth bool, result interface{}) error {
	resp, err := c.makeRequest(ctx, method, endpoint, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.parseResponse(resp, result)
}

func (c *Client) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, true, result)
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	if result == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newAPIError(fmt.Errorf("failed to read response body: %w", err))
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return newAPIError(fmt.Errorf("failed to parse response: %w", err))
	}

	if len(apiResp.Data) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(apiResp.Data))
	decoder.UseNumber()

	if err := decoder.Decode(result); err != nil {
		return newAPIError(fmt.Errorf("failed to parse response: %w", err))
	}

	return nil
}
