// Package tunnel manages an optional ngrok child process that exposes
// the local HTTP transport on a public URL. The public address is
// discovered through ngrok's local inspection API rather than by
// parsing process output.
package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultStartWait bounds how long Start polls the inspection API
// before giving up.
const DefaultStartWait = 3 * time.Second

// Config tunes the tunnel manager.
type Config struct {
	// Binary is the tunnel executable, resolved via PATH ("ngrok").
	Binary string

	// InspectURL is the local inspection API queried for the public URL.
	InspectURL string

	// StartWait bounds how long to wait for the tunnel to come up.
	StartWait time.Duration

	Logger *slog.Logger
}

// Tunnel supervises one tunnel child process.
type Tunnel struct {
	binary     string
	inspectURL string
	startWait  time.Duration
	logger     *slog.Logger
	client     *http.Client

	cmd       *exec.Cmd
	publicURL string
}

// New creates a tunnel manager. It does not start anything.
func New(cfg Config) *Tunnel {
	if cfg.Binary == "" {
		cfg.Binary = "ngrok"
	}
	if cfg.InspectURL == "" {
		cfg.InspectURL = "http://127.0.0.1:4040/api/tunnels"
	}
	if cfg.StartWait <= 0 {
		cfg.StartWait = DefaultStartWait
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Tunnel{
		binary:     cfg.Binary,
		inspectURL: cfg.InspectURL,
		startWait:  cfg.StartWait,
		logger:     cfg.Logger,
		client:     &http.Client{Timeout: 2 * time.Second},
	}
}

// Available reports whether the tunnel binary can be found on PATH.
func (t *Tunnel) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Start launches the tunnel for the given local port and returns the
// public URL once the inspection API reports it.
func (t *Tunnel) Start(ctx context.Context, port int) (string, error) {
	if t.cmd != nil {
		return "", fmt.Errorf("tunnel already running")
	}
	path, err := exec.LookPath(t.binary)
	if err != nil {
		return "", fmt.Errorf("tunnel binary %q not found: %w", t.binary, err)
	}

	cmd := exec.Command(path, "http", strconv.Itoa(port))
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start tunnel: %w", err)
	}
	t.cmd = cmd
	go func() {
		// Reap the child; exit status surfaces through the missing
		// public URL, not here.
		_ = cmd.Wait()
	}()

	deadline := time.Now().Add(t.startWait)
	for {
		url, err := t.fetchPublicURL(ctx)
		if err == nil && url != "" {
			t.publicURL = url
			t.logger.Info("tunnel established", "public_url", url, "port", port)
			return url, nil
		}
		if time.Now().After(deadline) {
			_ = t.Stop()
			return "", fmt.Errorf("tunnel did not come up within %s", t.startWait)
		}
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// PublicURL returns the discovered public URL, or "" before Start
// succeeds.
func (t *Tunnel) PublicURL() string {
	return t.publicURL
}

// Stop terminates the tunnel process. Safe to call when nothing runs.
func (t *Tunnel) Stop() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	err := t.cmd.Process.Kill()
	t.cmd = nil
	t.publicURL = ""
	return err
}

// inspectResponse is the shape of the inspection API's tunnel listing.
type inspectResponse struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// fetchPublicURL queries the inspection API and returns the first
// https tunnel, falling back to any tunnel at all.
func (t *Tunnel) fetchPublicURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.inspectURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inspection API returned %d", resp.StatusCode)
	}

	var listing inspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return "", err
	}
	var fallback string
	for _, entry := range listing.Tunnels {
		if entry.PublicURL == "" {
			continue
		}
		if entry.Proto == "https" || strings.HasPrefix(entry.PublicURL, "https://") {
			return entry.PublicURL, nil
		}
		if fallback == "" {
			fallback = entry.PublicURL
		}
	}
	return fallback, nil
}
