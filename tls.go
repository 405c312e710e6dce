package oracle

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"
)

// WalletConfig describes how to build a *tls.Config from a wallet
// directory or a raw PEM file. The TLS provider itself (cipher
// selection, session resumption policy, etc.) is out of scope.
// BuildTLSConfig loads only the PEM file's CA certificates into
// RootCAs: it sets no client certificate, so the result does not
// authenticate the client, and PEMPassword is not used.
type WalletConfig struct {
	// WalletDirectory, when set, resolves to WalletDirectory/ewallet.pem.
	WalletDirectory string

	// PEMPath/PEMPassword are used instead when WalletDirectory is empty.
	PEMPath     string
	PEMPassword string

	ServerName       string
	ServerCertDN     string
	InsecureNoVerify bool
}

// BuildTLSConfig resolves the wallet or PEM file and returns a
// *tls.Config ready for the connection's TLS dial.
func (w *WalletConfig) BuildTLSConfig() (*tls.Config, error) {
	path := w.PEMPath
	if w.WalletDirectory != "" {
		path = filepath.Join(w.WalletDirectory, "ewallet.pem")
	}
	if path == "" {
		return nil, newError(KindFailedToAddSSLHandler, "no wallet directory or PEM path configured")
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindFailedToAddSSLHandler, "reading wallet: %v", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, newError(KindFailedToVerifyTLSCertificates, "no certificates found in %s", path)
	}
	cfg := &tls.Config{
		RootCAs:            pool,
		ServerName:         w.ServerName,
		InsecureSkipVerify: w.InsecureNoVerify,
		MinVersion:         tls.VersionTLS12,
	}
	return cfg, nil
}

// renegotiationLimiter bounds how many connections may be mid-TLS-
// renegotiation concurrently when an external pool drives many
// Connections through this core at once (SPEC_FULL.md domain-stack
// wiring for golang.org/x/sync/semaphore).
type renegotiationLimiter struct {
	sem *semaphore.Weighted
}

func newRenegotiationLimiter(maxConcurrent int64) *renegotiationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &renegotiationLimiter{sem: semaphore.NewWeighted(maxConcurrent)}
}

func (l *renegotiationLimiter) acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *renegotiationLimiter) release() {
	l.sem.Release(1)
}

var defaultRenegotiationLimiter = newRenegotiationLimiter(8)
