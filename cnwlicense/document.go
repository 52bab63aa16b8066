package cnwlicense

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// requiredFields must be present at the top level of every license.
var requiredFields = []string{"license_id", "program", "term", "products"}

// NormalizeDocument returns the JSON form of a license given as JSON or YAML.
// The result is always a JSON object; anything else wraps
// ErrLicenseFileInvalid.
func NormalizeDocument(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrLicenseFileInvalid)
	}

	doc := trimmed
	if trimmed[0] != '{' {
		converted, err := yaml.YAMLToJSON(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLicenseFileInvalid, err)
		}
		doc = converted
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(doc, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseFileInvalid, err)
	}
	if members == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrLicenseFileInvalid)
	}
	if err := checkDuplicateMembers(json.NewDecoder(bytes.NewReader(doc))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseFileInvalid, err)
	}
	return doc, nil
}

// checkDuplicateMembers walks one JSON value and fails on any object that
// repeats a member name. The signed bytes keep only the last copy of a
// repeated member while encoding/json merges every copy, so such documents
// are ambiguous.
func checkDuplicateMembers(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('{'):
		seen := make(map[string]struct{})
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			if _, dup := seen[key]; dup {
				return fmt.Errorf("duplicate member %q", key)
			}
			seen[key] = struct{}{}
			if err := checkDuplicateMembers(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	case json.Delim('['):
		for dec.More() {
			if err := checkDuplicateMembers(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}
	return nil
}

// ParseDocument decodes a normalized JSON license into the typed model. It
// does not check the signature; callers verify first.
func ParseDocument(doc []byte) (*LicenseDocument, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(doc, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseFileInvalid, err)
	}
	for _, field := range requiredFields {
		v, ok := members[field]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrLicenseFileInvalid, field)
		}
	}

	var d LicenseDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseFileInvalid, err)
	}
	return &d, nil
}
