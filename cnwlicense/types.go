package cnwlicense

import "slices"

// LicenseDocument is the typed view of a signed license. It is decoded only
// after the signature over the raw bytes has been verified.
type LicenseDocument struct {
	LicenseID    string                        `json:"license_id"`
	Program      Program                       `json:"program"`
	Term         Term                          `json:"term"`
	Products     map[string]ProductEntitlement `json:"products"`
	Roles        StringSet                     `json:"roles,omitempty"`
	Entitlements *Entitlements                 `json:"entitlements,omitempty"`
	Bindings     *Bindings                     `json:"bindings,omitempty"`
	Signature    *Signature                    `json:"signature,omitempty"`
}

// Program names the program the license authorizes.
type Program struct {
	ProgramID string `json:"program_id"`
}

// Term is the inclusive validity window as ISO-8601 calendar dates
// ("2024-01-01"). Empty means missing.
type Term struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ProductEntitlement is the per-program switch set.
type ProductEntitlement struct {
	Enabled        bool `json:"enabled"`
	OfflineAllowed bool `json:"offline_allowed"`
}

// Entitlements holds the granted feature flags.
type Entitlements struct {
	Features StringSet `json:"features"`
}

// Bindings restricts a license to listed devices. A nil *Bindings (field
// absent) and an empty DeviceFingerprints both mean "no restriction".
type Bindings struct {
	DeviceFingerprints StringSet `json:"device_fingerprints"`
}

// Signature is the detached signature block.
type Signature struct {
	Value string `json:"value"`
}

// StringSet is a JSON array treated as a set. Order and duplicates carry no
// meaning.
type StringSet []string

// Contains reports whether s is a member.
func (ss StringSet) Contains(s string) bool {
	return slices.Contains(ss, s)
}

// Features returns the granted features, nil when the entitlements block is
// absent.
func (d *LicenseDocument) Features() StringSet {
	if d.Entitlements == nil {
		return nil
	}
	return d.Entitlements.Features
}

// DeviceFingerprints returns the device allow-list, nil when unrestricted.
func (d *LicenseDocument) DeviceFingerprints() StringSet {
	if d.Bindings == nil {
		return nil
	}
	return d.Bindings.DeviceFingerprints
}
