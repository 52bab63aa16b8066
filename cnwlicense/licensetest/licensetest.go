// Package licensetest issues signed licenses for tests. It uses the same
// canonical encoding as the verifier, so anything it signs verifies.
package licensetest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"testing"

	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense/canonical"
)

// KeyPair is an Ed25519 key pair with the public half PEM-encoded.
type KeyPair struct {
	Public    ed25519.PublicKey
	Private   ed25519.PrivateKey
	PublicPEM []byte
}

// NewKeyPair generates a fresh key pair or fails the test.
func NewKeyPair(t testing.TB) KeyPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	k, err := newKeyPair(priv)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return k
}

// NewKeyPairFromSeed derives a deterministic key pair from a 32-byte seed.
func NewKeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("seed length %d, expected %d", len(seed), ed25519.SeedSize)
	}
	return newKeyPair(ed25519.NewKeyFromSeed(seed))
}

func newKeyPair(priv ed25519.PrivateKey) (KeyPair, error) {
	pub := priv.Public().(ed25519.PublicKey)
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	return KeyPair{
		Public:    pub,
		Private:   priv,
		PublicPEM: pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}),
	}, nil
}

// Document returns the license every scenario starts from: program "emv",
// term 2024, role "oem_engineer", feature "baseline_creation", no device
// bindings. Callers mutate the returned map freely.
func Document() map[string]any {
	return map[string]any{
		"license_id": "LIC-2024-0001",
		"program":    map[string]any{"program_id": "emv"},
		"term":       map[string]any{"start": "2024-01-01", "end": "2024-12-31"},
		"products": map[string]any{
			"emv": map[string]any{"enabled": true, "offline_allowed": true},
		},
		"roles":        []any{"oem_engineer"},
		"entitlements": map[string]any{"features": []any{"baseline_creation"}},
	}
}

// Sign returns doc as JSON with a signature block computed over its
// canonical bytes, or fails the test. doc is not modified.
func (k KeyPair) Sign(t testing.TB, doc map[string]any) []byte {
	t.Helper()
	raw, err := SignDocument(k.Private, doc)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return raw
}

// SignDocument returns doc as JSON with a "signature" member holding the
// base64 Ed25519 signature over the canonical form of the rest of doc. Any
// existing "signature" member is replaced.
func SignDocument(priv ed25519.PrivateKey, doc map[string]any) ([]byte, error) {
	unsigned := make(map[string]any, len(doc))
	for key, v := range doc {
		if key != "signature" {
			unsigned[key] = v
		}
	}
	msg, err := canonical.Marshal(unsigned)
	if err != nil {
		return nil, fmt.Errorf("canonicalize license: %w", err)
	}

	signed := make(map[string]any, len(unsigned)+1)
	for key, v := range unsigned {
		signed[key] = v
	}
	signed["signature"] = map[string]any{
		"value": base64.StdEncoding.EncodeToString(ed25519.Sign(priv, msg)),
	}
	raw, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("marshal license: %w", err)
	}
	return raw, nil
}
