package framework

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	rootCAValidity = 24 * time.Hour
	edgeValidity   = time.Hour
	keySize        = 2048
)

// CertAuthority issues certificates for test edge nodes
type CertAuthority struct {
	rootCert *x509.Certificate
	rootKey  *rsa.PrivateKey
}

// NewCertAuthority generates a self-signed root CA
func NewCertAuthority() (*CertAuthority, error) {
	rootKey, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate root key: %w", err)
	}

	serialNumber, err := serial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Failover Test"},
			CommonName:   "Failover Test Root CA",
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(rootCAValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &rootKey.PublicKey, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create root certificate: %w", err)
	}
	rootCert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}

	return &CertAuthority{rootCert: rootCert, rootKey: rootKey}, nil
}

// IssueEdgeCertificate issues a server certificate valid for hosts. Entries
// that parse as IP addresses become IP SANs.
func (ca *CertAuthority) IssueEdgeCertificate(hosts ...string) (*tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate edge key: %w", err)
	}

	serialNumber, err := serial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Failover Test"},
			CommonName:   hosts[0],
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(edgeValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, ca.rootCert, &key.PublicKey, ca.rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse edge certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// ClientConfig returns a TLS config trusting only this CA
func (ca *CertAuthority) ClientConfig() *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(ca.rootCert)
	return &tls.Config{RootCAs: pool}
}

func serial() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return n, nil
}
