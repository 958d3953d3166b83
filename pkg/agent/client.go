package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mscrnt/memprobe/pkg/control"
	"github.com/mscrnt/memprobe/pkg/smbus"
)

// Client talks to a remote agent. It implements control.Device, so a
// control.Client can read a remote machine the same way it reads the local
// driver.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient connects to the agent at addr (host:port) with the given client
// credentials.
func NewClient(addr string, creds Credentials) (*Client, error) {
	tlsConfig, err := creds.ClientTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS config: %w", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: 30 * time.Second,
	}

	return newClient("https://"+addr, httpClient), nil
}

func newClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Get fetches an endpoint and returns the response body
func (c *Client) Get(endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: agent: %s", smbus.ErrControllerNotFound, strings.TrimSpace(string(body)))
	case http.StatusNotImplemented:
		return nil, fmt.Errorf("%w: agent: %s", control.ErrUnsupportedRequest, strings.TrimSpace(string(body)))
	default:
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// IoControl implements control.Device over HTTP.
func (c *Client) IoControl(code uint32, in, out []byte) (int, error) {
	if len(in) != 0 {
		return 0, control.ErrInvalidBufferSize
	}

	endpoint := ""
	for name, route := range recordRoutes {
		if route.code == code {
			endpoint = name
			break
		}
	}
	if endpoint == "" {
		return 0, fmt.Errorf("%w: 0x%06X", control.ErrUnsupportedRequest, code)
	}

	body, err := c.Get(endpoint)
	if err != nil {
		return 0, err
	}
	if len(body) > len(out) {
		return 0, fmt.Errorf("%w: agent returned %d bytes for a %d byte buffer", control.ErrInvalidBufferSize, len(body), len(out))
	}
	return copy(out, body), nil
}

// Close implements control.Device.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SysInfo fetches the agent's host description
func (c *Client) SysInfo() (*SysInfo, error) {
	body, err := c.Get(EndpointSysinfo)
	if err != nil {
		return nil, err
	}
	var info SysInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode sysinfo: %w", err)
	}
	return &info, nil
}

// CheckHealth checks if the agent is healthy
func (c *Client) CheckHealth() error {
	body, err := c.Get(EndpointHealth)
	if err != nil {
		return err
	}

	if string(body) != "OK\n" {
		return fmt.Errorf("unexpected health response: %s", string(body))
	}

	return nil
}
