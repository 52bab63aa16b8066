package cnwlicense

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"

	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense/canonical"
)

// signatureKey is the top-level member that holds the detached signature.
// It is excluded from the bytes it signs.
const signatureKey = "signature"

// SignedBytes returns the canonical bytes a license signature covers: the
// document object with its "signature" member removed. Issuers sign exactly
// these bytes.
func SignedBytes(doc []byte) ([]byte, error) {
	return canonical.Without(doc, signatureKey)
}

// VerifySignature reports whether doc (a JSON object) carries a valid
// signature.value for pub. Every failure along the way, from a missing
// signature block to malformed base64 to a byte mismatch, returns false.
func VerifySignature(pub ed25519.PublicKey, doc []byte) bool {
	_, ok := verifiedPayload(pub, doc)
	return ok
}

// verifiedPayload returns the exact bytes the signature covers. Everything
// trusted after the check must be decoded from these bytes, not from doc.
func verifiedPayload(pub ed25519.PublicKey, doc []byte) ([]byte, bool) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, false
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(doc, &members); err != nil {
		return nil, false
	}
	block, ok := members[signatureKey]
	if !ok {
		return nil, false
	}
	var signature Signature
	if err := json.Unmarshal(block, &signature); err != nil {
		return nil, false
	}
	sig, err := base64.StdEncoding.DecodeString(signature.Value)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, false
	}

	msg, err := SignedBytes(doc)
	if err != nil {
		return nil, false
	}
	if !ed25519.Verify(pub, msg, sig) {
		return nil, false
	}
	return msg, true
}
