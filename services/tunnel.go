// ABOUTME: Optional SSH+SOCKS5 egress tunnel for upstream API calls
// ABOUTME: Parses UPSTREAM_ALL_PROXY and lazily builds the tunnel dialer

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"
)

// DialContextFunc matches http.Transport.DialContext.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TunnelConfig is the parsed form of an ssh+socks5 proxy URL.
type TunnelConfig struct {
	Username string
	Host     string
	KeyPath  string
}

// ParseTunnelURL parses ssh+socks5://user@host:port?private-key=/path/to/key.
func ParseTunnelURL(allProxy string) (TunnelConfig, error) {
	if !strings.HasPrefix(allProxy, "ssh+socks5://") && !strings.HasPrefix(allProxy, "socks5://") {
		return TunnelConfig{}, fmt.Errorf("unsupported proxy scheme in %q", allProxy)
	}
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return TunnelConfig{}, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if proxyURL.Host == "" {
		return TunnelConfig{}, errors.New("proxy URL has no host")
	}

	cfg := TunnelConfig{
		Host:    proxyURL.Host,
		KeyPath: proxyURL.Query().Get("private-key"),
	}
	if proxyURL.User != nil {
		cfg.Username = proxyURL.User.Username()
	}
	if cfg.KeyPath == "" {
		return TunnelConfig{}, errors.New("proxy URL missing required 'private-key' query param")
	}
	return cfg, nil
}

// NewTunnelDialer returns a dial function that routes connections through the jumpbox.
// The SSH session is opened on first use and reused afterwards.
func NewTunnelDialer(allProxy string) (DialContextFunc, error) {
	cfg, err := ParseTunnelURL(allProxy)
	if err != nil {
		return nil, err
	}

	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key %s: %w", cfg.KeyPath, err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		d := dialer
		mut.RUnlock()

		if d != nil {
			return d(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(cfg.Username, string(key), cfg.Host)
			if err != nil {
				return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}, nil
}
