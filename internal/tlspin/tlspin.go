// Package tlspin implements the TLS pinning module of spec.md §4.6: a
// self-signed server identity and a trust-on-first-use peer verification
// that checks only the public-key hash transmitted out-of-band, never a
// certificate chain.
//
// No example repo in the retrieval pack builds a TLS transport, so this
// package is grounded directly on crypto/tls/crypto/x509 -- the standard
// library is the idiomatic, and only, way to do TLS in Go; there is no
// third-party "TLS library" the ecosystem reaches for in its place (see
// DESIGN.md).
package tlspin

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Fingerprint returns the uppercase-hex SHA-256 of a public key's PEM
// serialization (spec.md §3 "Session" and §4.6).
func Fingerprint(pub any) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	sum := sha256.Sum256(pemBytes)
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// BuildAcceptor generates an ephemeral EC keypair, self-signs an X.509
// certificate with it, and returns a server tls.Config built from it along
// with the uppercase-hex SHA-256 fingerprint of the public key (spec.md
// §4.6 "build_acceptor").
func BuildAcceptor() (*tls.Config, string, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}

	fingerprint, err := Fingerprint(&key.PublicKey)
	if err != nil {
		return nil, "", err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, "", fmt.Errorf("generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "remoterm"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, "", fmt.Errorf("self-sign certificate: %w", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	// Mozilla "intermediate" profile: TLS 1.2 floor, modern cipher suites
	// only (TLS 1.3 suites are implicit and unconfigurable in crypto/tls).
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		},
	}

	return cfg, fingerprint, nil
}

// ClientConfig builds a tls.Config for dialing the server: SNI and
// hostname verification are both disabled (ServerName left empty,
// InsecureSkipVerify set), and the only identity check is
// VerifyPeerCertificate comparing the end-entity certificate's public-key
// fingerprint against expectedFingerprint (spec.md §4.4 step 3, §4.6
// "connect"). Chain validity is deliberately not checked.
func ClientConfig(expectedFingerprint string) *tls.Config {
	expectedFingerprint = strings.ToUpper(strings.TrimSpace(expectedFingerprint))

	return &tls.Config{
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			return verifyFingerprint(rawCerts, expectedFingerprint)
		},
	}
}

// verifyFingerprint checks only the first (end-entity/current) certificate
// in rawCerts -- spec.md §4.6 "Exactly the end-entity (current) certificate
// is checked; chain validity is not."
func verifyFingerprint(rawCerts [][]byte, expectedFingerprint string) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("peer presented no certificate")
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("parse peer certificate: %w", err)
	}

	got, err := Fingerprint(cert.PublicKey)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expectedFingerprint) {
		return fmt.Errorf("public key fingerprint mismatch: got %s, want %s", got, expectedFingerprint)
	}
	return nil
}
