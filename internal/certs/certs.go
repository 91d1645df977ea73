// Package certs issues and caches a self-signed certificate so the API can be
// served over HTTPS on a private network without an external CA.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultValidity is how long a generated certificate stays valid.
const DefaultValidity = 365 * 24 * time.Hour

// renewBefore regenerates certificates this close to expiry.
const renewBefore = 7 * 24 * time.Hour

// ErrInvalidCertificate reports a cached certificate that cannot be used.
var ErrInvalidCertificate = errors.New("invalid certificate")

// SelfSigned keeps a server certificate and key under a directory.
type SelfSigned struct {
	now      func() time.Time
	dir      string
	certFile string
	keyFile  string
	hosts    []string
	validity time.Duration
}

// NewSelfSigned returns a certificate source rooted at dir. Hosts are DNS names
// or IP literals; localhost and the loopback addresses are always included.
func NewSelfSigned(dir string, hosts ...string) *SelfSigned {
	return &SelfSigned{
		now:      time.Now,
		dir:      dir,
		certFile: filepath.Join(dir, "server.crt"),
		keyFile:  filepath.Join(dir, "server.key"),
		hosts:    append([]string{"localhost", "127.0.0.1", "::1"}, hosts...),
		validity: DefaultValidity,
	}
}

// Paths returns the certificate and key file locations.
func (s *SelfSigned) Paths() (certFile, keyFile string) {
	return s.certFile, s.keyFile
}

// TLSConfig loads the cached certificate, regenerating it when it is missing,
// unreadable, close to expiry or not valid for the configured hosts.
func (s *SelfSigned) TLSConfig() (*tls.Config, error) {
	cert, err := s.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Certificate returns a usable key pair.
func (s *SelfSigned) Certificate() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
	switch {
	case err == nil:
		verr := s.verify(cert)
		if verr == nil {
			return cert, nil
		}
		slog.Info("Regenerating server certificate", "reason", verr)
	case errors.Is(err, os.ErrNotExist):
	default:
		slog.Warn("Cached server certificate unreadable, regenerating", "error", err)
	}
	return s.generate()
}

func (s *SelfSigned) generate() (tls.Certificate, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 120))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial: %w", err)
	}

	now := s.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"smspay"}, CommonName: s.hosts[0]},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(s.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range s.hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to marshal key: %w", err)
	}

	if err := writePEM(s.certFile, "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(s.keyFile, "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}

	slog.Info("Generated self-signed server certificate", "path", s.certFile, "hosts", s.hosts, "expires", template.NotAfter)
	return tls.LoadX509KeyPair(s.certFile, s.keyFile)
}

func (s *SelfSigned) verify(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("%w: empty chain", ErrInvalidCertificate)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	now := s.now()
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("%w: not yet valid", ErrInvalidCertificate)
	}
	if now.Add(renewBefore).After(leaf.NotAfter) {
		return fmt.Errorf("%w: expires %s", ErrInvalidCertificate, leaf.NotAfter.Format(time.RFC3339))
	}
	for _, h := range s.hosts {
		if err := leaf.VerifyHostname(h); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
		}
	}
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
