// Package browser drives throwaway headless-browser tabs over the remote
// debugging protocol: an HTTP control endpoint for tab lifecycle and a
// websocket per tab for JSON commands.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Tab is a page target created through the control endpoint. One extraction
// attempt owns it and closes it before returning.
type Tab struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	WebSocketURL string `json:"webSocketDebuggerUrl"`
}

// Version is the capability probe answer of /json/version.
type Version struct {
	Browser         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
	UserAgent       string `json:"User-Agent"`
	WebSocketURL    string `json:"webSocketDebuggerUrl"`
}

// Control talks to the HTTP side of the debugging endpoint.
type Control struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewControl parses endpoint (e.g. http://chrome:9222).
func NewControl(endpoint string, client *http.Client, logger *slog.Logger) (*Control, error) {
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse browser endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("browser endpoint %q must be http(s)", endpoint)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Control{base: base, client: client, logger: logger}, nil
}

// Version probes GET /json/version.
func (c *Control) Version(ctx context.Context) (Version, error) {
	var v Version
	if err := c.call(ctx, http.MethodGet, "/json/version", "", &v); err != nil {
		return Version{}, fmt.Errorf("probe version: %w", err)
	}
	return v, nil
}

// NewTab opens about:blank via PUT /json/new.
func (c *Control) NewTab(ctx context.Context) (Tab, error) {
	var tab Tab
	if err := c.call(ctx, http.MethodPut, "/json/new", "about:blank", &tab); err != nil {
		return Tab{}, fmt.Errorf("create tab: %w", err)
	}
	if tab.ID == "" || tab.WebSocketURL == "" {
		return Tab{}, fmt.Errorf("create tab: incomplete descriptor %+v", tab)
	}
	tab.WebSocketURL = c.rewriteHost(tab.WebSocketURL)
	return tab, nil
}

// CloseTab closes a tab with POST /json/close/{id}. It never fails the caller.
func (c *Control) CloseTab(ctx context.Context, id string) {
	if err := c.call(ctx, http.MethodPost, "/json/close/"+url.PathEscape(id), "", nil); err != nil {
		c.logger.Warn("close tab failed", "tab", id, "error", err)
		return
	}
	c.logger.Debug("tab closed", "tab", id)
}

func (c *Control) call(ctx context.Context, method, path, rawQuery string, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// rewriteHost points the tab websocket at the host we reached the control
// endpoint on; browsers in containers advertise their internal address.
func (c *Control) rewriteHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Host = c.base.Host
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}
