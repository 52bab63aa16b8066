// Package canonical produces the deterministic byte form of a license
// document that signer and verifier both feed to Ed25519.
//
// The encoding is RFC 8785 (JSON Canonicalization Scheme): object keys sorted
// at every level, no insignificant whitespace, ',' and ':' separators,
// standard JSON string escaping and ECMAScript number formatting.
package canonical

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ErrEncoding is returned when a value has no canonical representation,
// e.g. NaN or an infinite float, a channel, or invalid UTF-8.
var ErrEncoding = errors.New("canonical encoding failed")

// Marshal encodes v as JSON and canonicalizes the result.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return Transform(raw)
}

// Transform canonicalizes an already encoded JSON value.
func Transform(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}

// Without canonicalizes the JSON object in raw with the top-level member key
// removed. raw itself is left untouched. A missing key is not an error.
func Without(raw []byte, key string) ([]byte, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrEncoding, err)
	}
	if members == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrEncoding)
	}
	delete(members, key)
	return Marshal(members)
}
