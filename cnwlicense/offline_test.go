package cnwlicense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense/licensetest"
)

var midTerm = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func scenarioRequirements() Requirements {
	return Requirements{
		ProgramID: "emv",
		Role:      "oem_engineer",
		Feature:   "baseline_creation",
		Today:     midTerm,
	}
}

func emvProduct(doc map[string]any) map[string]any {
	return doc["products"].(map[string]any)["emv"].(map[string]any)
}

// corruptSignature flips one bit of the decoded signature and re-encodes it.
func corruptSignature(t *testing.T, raw []byte) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	block := doc["signature"].(map[string]any)
	sig, err := base64.StdEncoding.DecodeString(block["value"].(string))
	require.NoError(t, err)
	sig[0] ^= 0x01
	block["value"] = base64.StdEncoding.EncodeToString(sig)
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

func TestAssertLicenseOK_Scenarios(t *testing.T) {
	keys := licensetest.NewKeyPair(t)

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		req    func(r *Requirements)
		raw    func(t *testing.T, raw []byte) []byte
		want   VerifyResult
	}{
		{
			name: "valid license",
			want: VerifyResult{OK: true, Reason: "ok", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateOK},
		},
		{
			name: "day after term end",
			req:  func(r *Requirements) { r.Today = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
			want: VerifyResult{Reason: "expired_or_not_active", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateSignatureVerified},
		},
		{
			name: "before term start",
			req:  func(r *Requirements) { r.Today = time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC) },
			want: VerifyResult{Reason: "expired_or_not_active", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateSignatureVerified},
		},
		{
			name: "corrupted signature",
			raw:  corruptSignature,
			want: VerifyResult{Reason: "bad_signature", ProgramID: "emv", State: StateKeyLoaded},
		},
		{
			name:   "product disabled",
			mutate: func(doc map[string]any) { emvProduct(doc)["enabled"] = false },
			want:   VerifyResult{Reason: "emv_not_enabled", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name:   "product missing",
			mutate: func(doc map[string]any) { doc["products"] = map[string]any{} },
			want:   VerifyResult{Reason: "emv_not_enabled", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name:   "offline not allowed",
			mutate: func(doc map[string]any) { emvProduct(doc)["offline_allowed"] = false },
			want:   VerifyResult{Reason: "offline_not_allowed", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name:   "other program",
			mutate: func(doc map[string]any) { doc["program"] = map[string]any{"program_id": "pos"} },
			want:   VerifyResult{Reason: "not_emv", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateTermValid},
		},
		{
			name:   "missing role",
			mutate: func(doc map[string]any) { doc["roles"] = []any{"other_role"} },
			want:   VerifyResult{Reason: "missing_role:oem_engineer", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name:   "missing feature",
			mutate: func(doc map[string]any) { doc["entitlements"] = map[string]any{"features": []any{}} },
			want:   VerifyResult{Reason: "missing_feature:baseline_creation", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name: "role and feature missing reports role",
			mutate: func(doc map[string]any) {
				doc["roles"] = []any{"other_role"}
				delete(doc, "entitlements")
			},
			want: VerifyResult{Reason: "missing_role:oem_engineer", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateProgramMatched},
		},
		{
			name:   "role and feature not required",
			mutate: func(doc map[string]any) { delete(doc, "roles"); delete(doc, "entitlements") },
			req:    func(r *Requirements) { r.Role, r.Feature = "", "" },
			want:   VerifyResult{OK: true, Reason: "ok", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateOK},
		},
		{
			name:   "device not authorized",
			mutate: func(doc map[string]any) { doc["bindings"] = map[string]any{"device_fingerprints": []any{"abc123"}} },
			req:    func(r *Requirements) { r.DeviceFingerprint = "xyz789" },
			want:   VerifyResult{Reason: "device_not_authorized", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateEntitled},
		},
		{
			name:   "device authorized",
			mutate: func(doc map[string]any) { doc["bindings"] = map[string]any{"device_fingerprints": []any{"abc123"}} },
			req:    func(r *Requirements) { r.DeviceFingerprint = "abc123" },
			want:   VerifyResult{OK: true, Reason: "ok", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateOK},
		},
		{
			name:   "empty device allow-list",
			mutate: func(doc map[string]any) { doc["bindings"] = map[string]any{"device_fingerprints": []any{}} },
			req:    func(r *Requirements) { r.DeviceFingerprint = "anything" },
			want:   VerifyResult{OK: true, Reason: "ok", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateOK},
		},
		{
			name:   "device check disabled",
			mutate: func(doc map[string]any) { doc["bindings"] = map[string]any{"device_fingerprints": []any{"abc123"}} },
			want:   VerifyResult{OK: true, Reason: "ok", ProgramID: "emv", LicenseID: "LIC-2024-0001", State: StateOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := licensetest.Document()
			if tt.mutate != nil {
				tt.mutate(doc)
			}
			raw := keys.Sign(t, doc)
			if tt.raw != nil {
				raw = tt.raw(t, raw)
			}
			req := scenarioRequirements()
			if tt.req != nil {
				tt.req(&req)
			}

			got, err := AssertLicenseOK(raw, keys.PublicPEM, req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssertLicenseOK_Deterministic(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	raw := keys.Sign(t, licensetest.Document())

	for _, req := range []Requirements{scenarioRequirements(), {ProgramID: "emv", Today: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}} {
		first, err := AssertLicenseOK(raw, keys.PublicPEM, req)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := AssertLicenseOK(raw, keys.PublicPEM, req)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestAssertLicenseOK_WrongKey(t *testing.T) {
	issuer := licensetest.NewKeyPair(t)
	other := licensetest.NewKeyPair(t)
	raw := issuer.Sign(t, licensetest.Document())

	got, err := AssertLicenseOK(raw, other.PublicPEM, scenarioRequirements())
	require.NoError(t, err)
	assert.False(t, got.OK)
	assert.Equal(t, ReasonBadSignature, got.Reason)
	assert.Empty(t, got.LicenseID, "untrusted license id must not be echoed")
}

func TestAssertLicenseOK_TamperedField(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	raw := keys.Sign(t, licensetest.Document())

	tampered := bytes.Replace(raw, []byte(`"2024-12-31"`), []byte(`"2099-12-31"`), 1)
	require.NotEqual(t, raw, tampered)

	got, err := AssertLicenseOK(tampered, keys.PublicPEM, scenarioRequirements())
	require.NoError(t, err)
	assert.Equal(t, ReasonBadSignature, got.Reason)
}

func TestAssertLicenseOK_DuplicateMembersRejected(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	doc := licensetest.Document()
	doc["products"] = map[string]any{
		"pos": map[string]any{"enabled": true, "offline_allowed": true},
	}
	raw := keys.Sign(t, doc)

	got, err := AssertLicenseOK(raw, keys.PublicPEM, scenarioRequirements())
	require.NoError(t, err)
	require.Equal(t, ReasonProgramNotEnabled("emv"), got.Reason)

	grant := `"products":{"emv":{"enabled":true,"offline_allowed":true}}`
	tests := map[string][]byte{
		"repeated top-level member": append([]byte(`{`+grant+`,`), raw[1:]...),
		"repeated nested member": bytes.Replace(raw, []byte(`"products":{`),
			[]byte(`"products":{"emv":{"enabled":true,"offline_allowed":true},`), 1),
	}
	for name, forged := range tests {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, raw, forged)

			got, err := AssertLicenseOK(forged, keys.PublicPEM, scenarioRequirements())
			assert.True(t, errors.Is(err, ErrLicenseFileInvalid), "got %v", err)
			assert.False(t, got.OK)
			assert.Empty(t, got.LicenseID)
		})
	}
}

func TestAssertLicenseOK_SignatureBlockProblems(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	doc := licensetest.Document()
	raw := keys.Sign(t, doc)

	var signed map[string]any
	require.NoError(t, json.Unmarshal(raw, &signed))
	sigValue := signed["signature"].(map[string]any)["value"].(string)
	sig, err := base64.StdEncoding.DecodeString(sigValue)
	require.NoError(t, err)

	tests := map[string]any{
		"missing block":   nil,
		"not an object":   "abc",
		"empty value":     map[string]any{"value": ""},
		"malformed b64":   map[string]any{"value": "!!!not-base64!!!"},
		"short signature": map[string]any{"value": base64.StdEncoding.EncodeToString(sig[:32])},
		"value not text":  map[string]any{"value": 42},
	}
	for name, block := range tests {
		t.Run(name, func(t *testing.T) {
			mutated := licensetest.Document()
			if block != nil {
				mutated["signature"] = block
			}
			body, err := json.Marshal(mutated)
			require.NoError(t, err)

			got, err := AssertLicenseOK(body, keys.PublicPEM, scenarioRequirements())
			require.NoError(t, err)
			assert.Equal(t, ReasonBadSignature, got.Reason)
		})
	}
}

func TestAssertLicenseOK_ReorderedKeysStillVerify(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	raw := keys.Sign(t, licensetest.Document())

	var members map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &members))
	names := make([]string, 0, len(members))
	for k := range members {
		names = append(names, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range names {
		if i > 0 {
			buf.WriteString(",\n")
		}
		key, _ := json.Marshal(k)
		var pretty bytes.Buffer
		require.NoError(t, json.Indent(&pretty, members[k], "  ", "  "))
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(" : ")
		buf.Write(pretty.Bytes())
	}
	buf.WriteString("\n}\n")

	got, err := AssertLicenseOK(buf.Bytes(), keys.PublicPEM, scenarioRequirements())
	require.NoError(t, err)
	assert.True(t, got.OK, "reason: %s", got.Reason)
}

func TestAssertLicenseOK_YAMLLicense(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	raw := keys.Sign(t, licensetest.Document())

	var signed map[string]any
	require.NoError(t, json.Unmarshal(raw, &signed))
	sigValue := signed["signature"].(map[string]any)["value"].(string)

	yamlDoc := `license_id: LIC-2024-0001
program:
  program_id: emv
term:
  start: "2024-01-01"
  end: "2024-12-31"
products:
  emv:
    enabled: true
    offline_allowed: true
roles:
  - oem_engineer
entitlements:
  features:
    - baseline_creation
signature:
  value: "` + sigValue + `"
`
	got, err := AssertLicenseOK([]byte(yamlDoc), keys.PublicPEM, scenarioRequirements())
	require.NoError(t, err)
	assert.True(t, got.OK, "reason: %s", got.Reason)
}

func TestAssertLicenseOK_ConfigurationErrors(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	valid := keys.Sign(t, licensetest.Document())

	t.Run("bad key", func(t *testing.T) {
		got, err := AssertLicenseOK(valid, []byte("not a key"), scenarioRequirements())
		assert.True(t, errors.Is(err, ErrPublicKeyInvalid), "got %v", err)
		assert.False(t, got.OK)
		assert.Equal(t, StateStart, got.State)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := AssertLicenseOK([]byte("{not json"), keys.PublicPEM, scenarioRequirements())
		assert.True(t, errors.Is(err, ErrLicenseFileInvalid), "got %v", err)
	})

	t.Run("array", func(t *testing.T) {
		_, err := AssertLicenseOK([]byte(`[1,2,3]`), keys.PublicPEM, scenarioRequirements())
		assert.True(t, errors.Is(err, ErrLicenseFileInvalid), "got %v", err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := AssertLicenseOK(nil, keys.PublicPEM, scenarioRequirements())
		assert.True(t, errors.Is(err, ErrLicenseFileInvalid), "got %v", err)
	})

	t.Run("signed but missing required field", func(t *testing.T) {
		doc := licensetest.Document()
		delete(doc, "term")
		raw := keys.Sign(t, doc)

		_, err := AssertLicenseOK(raw, keys.PublicPEM, scenarioRequirements())
		assert.True(t, errors.Is(err, ErrLicenseFileInvalid), "got %v", err)
	})

	t.Run("unsigned and missing required field", func(t *testing.T) {
		got, err := AssertLicenseOK([]byte(`{"license_id":"x"}`), keys.PublicPEM, scenarioRequirements())
		require.NoError(t, err)
		assert.Equal(t, ReasonBadSignature, got.Reason)
	})
}

func TestAssertLicenseOK_ZeroTodayUsesCurrentDate(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	doc := licensetest.Document()
	now := time.Now().UTC()
	doc["term"] = map[string]any{
		"start": now.AddDate(0, 0, -1).Format(time.DateOnly),
		"end":   now.AddDate(0, 0, 1).Format(time.DateOnly),
	}
	raw := keys.Sign(t, doc)

	got, err := AssertLicenseOK(raw, keys.PublicPEM, Requirements{ProgramID: "emv"})
	require.NoError(t, err)
	assert.True(t, got.OK, "reason: %s", got.Reason)
}

func TestVerifier_ConcurrentUse(t *testing.T) {
	keys := licensetest.NewKeyPair(t)
	raw := keys.Sign(t, licensetest.Document())
	v, err := NewVerifierPEM(keys.PublicPEM)
	require.NoError(t, err)

	const workers = 8
	results := make(chan VerifyResult, workers)
	for i := 0; i < workers; i++ {
		go func() {
			res, err := v.Verify(raw, scenarioRequirements())
			if err != nil {
				res.Reason = err.Error()
			}
			results <- res
		}()
	}
	for i := 0; i < workers; i++ {
		res := <-results
		assert.True(t, res.OK, "reason: %s", res.Reason)
	}
}

func TestNewVerifierPEM_BadKey(t *testing.T) {
	_, err := NewVerifierPEM([]byte("-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"))
	assert.True(t, errors.Is(err, ErrPublicKeyInvalid), "got %v", err)
}

func TestVerifyResult_Err(t *testing.T) {
	ok := VerifyResult{OK: true, Reason: ReasonOK, ProgramID: "emv"}
	assert.NoError(t, ok.Err())

	rejected := VerifyResult{Reason: ReasonExpired, ProgramID: "emv", LicenseID: "LIC-1"}
	err := rejected.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLicenseExpired))

	var re *RejectedError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, rejected, re.Result)
}
