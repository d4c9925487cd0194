package tlspin

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedDER(t *testing.T) ([]byte, string) {
	t.Helper()
	cfg, fingerprint, err := BuildAcceptor()
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	return cfg.Certificates[0].Certificate[0], fingerprint
}

func TestBuildAcceptor_FingerprintMatchesCertificate(t *testing.T) {
	der, fingerprint := selfSignedDER(t)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	got, err := Fingerprint(cert.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, got)
}

func TestVerifyFingerprint_Matches(t *testing.T) {
	der, fingerprint := selfSignedDER(t)

	err := verifyFingerprint([][]byte{der}, fingerprint)
	assert.NoError(t, err)
}

// TestVerifyFingerprint_Mismatch is the invariant-5 "pin handshake safety"
// property: a fingerprint that does not match the presented certificate's
// public key is rejected.
func TestVerifyFingerprint_Mismatch(t *testing.T) {
	der, _ := selfSignedDER(t)

	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	wrongFingerprint, err := Fingerprint(&otherKey.PublicKey)
	require.NoError(t, err)

	err = verifyFingerprint([][]byte{der}, wrongFingerprint)
	assert.Error(t, err)
}

func TestVerifyFingerprint_NoCertificate(t *testing.T) {
	err := verifyFingerprint(nil, "ANYTHING")
	assert.Error(t, err)
}

func TestVerifyFingerprint_CaseInsensitive(t *testing.T) {
	der, fingerprint := selfSignedDER(t)

	err := verifyFingerprint([][]byte{der}, toLowerASCII(fingerprint))
	assert.NoError(t, err)
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
