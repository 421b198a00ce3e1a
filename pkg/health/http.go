package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/failover/pkg/types"
)

// maxDrainBytes caps how much of a probe response body is read before closing
const maxDrainBytes = 64 << 10

// HTTPSProber probes edge nodes with HTTPS GET requests to https://address:port/
// carrying the canary host as Host header and TLS server name.
type HTTPSProber struct {
	// Timeout is the per-request timeout (default: 5s)
	Timeout time.Duration

	// MaxHealthyStatus is the highest status code still counted as reachable (default: 499)
	MaxHealthyStatus int

	// TLSConfig is cloned for every canary host, nil uses system roots
	TLSConfig *tls.Config

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewHTTPSProber creates a new HTTPS prober
func NewHTTPSProber(timeout time.Duration) *HTTPSProber {
	return &HTTPSProber{
		Timeout:          timeout,
		MaxHealthyStatus: http.StatusInternalServerError - 1,
		clients:          make(map[string]*http.Client),
	}
}

// WithTLSConfig sets the base TLS configuration
func (p *HTTPSProber) WithTLSConfig(cfg *tls.Config) *HTTPSProber {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.TLSConfig = cfg
	p.clients = make(map[string]*http.Client)
	return p
}

// clientFor returns the client whose TLS handshake presents host as SNI.
// The URL carries the node address, so the server name has to be pinned
// on the transport.
func (p *HTTPSProber) clientFor(host string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[host]; ok {
		return c
	}

	var tlsCfg *tls.Config
	if p.TLSConfig != nil {
		tlsCfg = p.TLSConfig.Clone()
	} else {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tlsCfg.ServerName = hostOnly(host)

	c := &http.Client{
		Timeout: p.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     tlsCfg,
			TLSHandshakeTimeout: p.Timeout,
			DisableKeepAlives:   true,
			DialContext: (&net.Dialer{
				Timeout: p.Timeout,
			}).DialContext,
		},
		// Redirects are answers from the node, not something to follow
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	p.clients[host] = c
	return c
}

// Probe performs one HTTPS request against address:port for host
func (p *HTTPSProber) Probe(ctx context.Context, address string, port int, host string) Result {
	start := time.Now()

	url := "https://" + net.JoinHostPort(address, strconv.Itoa(port)) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Err:       err,
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	req.Host = host

	resp, err := p.clientFor(host).Do(req)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("request failed: %v", err),
			Err:       &types.TransportError{Op: "probe " + host, Err: err},
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	healthy := resp.StatusCode <= p.MaxHealthyStatus
	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	result := Result{
		Healthy:    healthy,
		StatusCode: resp.StatusCode,
		Message:    message,
		CheckedAt:  start,
		Duration:   time.Since(start),
	}
	if !healthy {
		result.Err = fmt.Errorf("%s (expected < %d)", message, p.MaxHealthyStatus+1)
	}
	return result
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
