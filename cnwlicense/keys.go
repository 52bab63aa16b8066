package cnwlicense

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// LoadPublicKey parses a PEM-encoded Ed25519 public key ("PUBLIC KEY" block,
// PKIX/SubjectPublicKeyInfo). Any failure wraps ErrPublicKeyInvalid.
func LoadPublicKey(pemBytes []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrPublicKeyInvalid)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", ErrPublicKeyInvalid, block.Type)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKeyInvalid, err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected ed25519 key, got %T", ErrPublicKeyInvalid, parsed)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: key length %d, expected %d", ErrPublicKeyInvalid, len(pub), ed25519.PublicKeySize)
	}
	return pub, nil
}
