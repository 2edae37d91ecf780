// Package httpclient builds the pooled storefront transport and the circuit
// breaker that guards calls to third-party review APIs.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Config holds transport timeouts and TLS behavior.
type Config struct {
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	TotalTimeout       time.Duration
	InsecureSkipVerify bool
	MaxConnsPerHost    int
}

// DefaultConfig returns the storefront defaults: 3s connect, 5s read, 10s total.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  3 * time.Second,
		ReadTimeout:     5 * time.Second,
		TotalTimeout:    10 * time.Second,
		MaxConnsPerHost: 20,
	}
}

// NewTransport builds a pooled transport shared by every storefront caller.
func NewTransport(cfg Config) *http.Transport {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 3 * time.Second
	}
	perHost := cfg.MaxConnsPerHost
	if perHost <= 0 {
		perHost = 20
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		//nolint:gosec // opt-in for storefronts with broken certificate chains
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}

// NewClient wraps rt in an http.Client bounded by the total timeout.
func NewClient(rt http.RoundTripper, total time.Duration) *http.Client {
	if total <= 0 {
		total = 10 * time.Second
	}
	return &http.Client{
		Transport: rt,
		Timeout:   total,
	}
}
