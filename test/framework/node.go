package framework

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// EdgeNode is a local HTTPS server standing in for a CDN edge node
type EdgeNode struct {
	Server  *httptest.Server
	Address string
	Port    int

	status atomic.Int32
	hits   atomic.Int64

	mu    sync.Mutex
	hosts map[string]int
}

// NewEdgeNode starts an edge node serving a certificate for hosts issued by
// ca. It answers 200 until told otherwise.
func NewEdgeNode(t *testing.T, ca *CertAuthority, hosts ...string) *EdgeNode {
	t.Helper()

	cert, err := ca.IssueEdgeCertificate(hosts...)
	if err != nil {
		t.Fatalf("Failed to issue edge certificate: %v", err)
	}

	node := &EdgeNode{hosts: make(map[string]int)}
	node.status.Store(http.StatusOK)

	node.Server = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		node.hits.Add(1)
		node.mu.Lock()
		node.hosts[r.Host]++
		node.mu.Unlock()
		w.WriteHeader(int(node.status.Load()))
	}))
	node.Server.TLS = &tls.Config{Certificates: []tls.Certificate{*cert}}
	node.Server.StartTLS()
	t.Cleanup(node.Server.Close)

	addr := node.Server.Listener.Addr().(*net.TCPAddr)
	node.Address = addr.IP.String()
	node.Port = addr.Port
	return node
}

// SetStatus changes the status code the node answers with
func (n *EdgeNode) SetStatus(code int) {
	n.status.Store(int32(code))
}

// Hits returns the number of requests served
func (n *EdgeNode) Hits() int64 {
	return n.hits.Load()
}

// HostHits returns the number of requests carrying Host: host
func (n *EdgeNode) HostHits(host string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hosts[host]
}
