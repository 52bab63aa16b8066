package cnwlicense

import (
	"crypto/ed25519"
	"time"
)

// State is a step of the verification state machine. Each run advances
// through the states in declaration order and stops at the first failing
// check.
type State string

const (
	StateStart             State = "start"
	StateKeyLoaded         State = "key_loaded"
	StateSignatureVerified State = "signature_verified"
	StateTermValid         State = "term_valid"
	StateProgramMatched    State = "program_matched"
	StateEntitled          State = "entitled"
	StateDeviceBound       State = "device_bound"
	StateOK                State = "ok"
)

// Requirements is what the caller needs the license to grant.
type Requirements struct {
	// ProgramID is the program the license must be issued for.
	ProgramID string
	// Role and Feature are optional; empty skips the check.
	Role    string
	Feature string
	// DeviceFingerprint is the local fingerprint. Empty disables the device
	// check.
	DeviceFingerprint string
	// Today is the date the term is checked against. The zero value means
	// time.Now().
	Today time.Time
}

// VerifyResult is the verdict of one verification run.
type VerifyResult struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason"`
	ProgramID string `json:"program_id"`
	// LicenseID is only set once the signature has been verified.
	LicenseID string `json:"license_id"`
	// State is the last state the run reached.
	State State `json:"state"`
}

// Err returns nil for an accepted license and a *RejectedError otherwise.
func (r VerifyResult) Err() error {
	if r.OK {
		return nil
	}
	return &RejectedError{Result: r}
}

// AssertLicenseOK verifies licenseBytes against publicKeyPEM and req.
//
// The order is fixed: load key, verify signature, check term, check
// program/product/role/feature, check device binding. Nothing in the document
// is trusted before the signature check passes.
//
// The returned error is only set for configuration problems
// (ErrPublicKeyInvalid, ErrLicenseFileInvalid). A rejected license is a
// normal result with OK false and a reason code.
func AssertLicenseOK(licenseBytes, publicKeyPEM []byte, req Requirements) (VerifyResult, error) {
	pub, err := LoadPublicKey(publicKeyPEM)
	if err != nil {
		return VerifyResult{ProgramID: req.ProgramID, State: StateStart}, err
	}
	return NewVerifier(pub).Verify(licenseBytes, req)
}

// Verifier checks licenses against one trusted public key. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier returns a Verifier for an already loaded key.
func NewVerifier(pub ed25519.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// NewVerifierPEM loads a PEM public key and returns a Verifier for it.
func NewVerifierPEM(publicKeyPEM []byte) (*Verifier, error) {
	pub, err := LoadPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return NewVerifier(pub), nil
}

// Verify runs every step after key loading. See AssertLicenseOK.
func (v *Verifier) Verify(licenseBytes []byte, req Requirements) (VerifyResult, error) {
	res := VerifyResult{ProgramID: req.ProgramID, State: StateKeyLoaded}

	raw, err := NormalizeDocument(licenseBytes)
	if err != nil {
		return res, err
	}
	payload, ok := verifiedPayload(v.pub, raw)
	if !ok {
		return res.reject(ReasonBadSignature), nil
	}

	doc, err := ParseDocument(payload)
	if err != nil {
		return res, err
	}
	res.State = StateSignatureVerified
	res.LicenseID = doc.LicenseID

	today := req.Today
	if today.IsZero() {
		today = time.Now()
	}
	if !InTerm(doc.Term, today) {
		return res.reject(ReasonExpired), nil
	}
	res.State = StateTermValid

	if ok, reason := CheckEntitlement(doc, req.ProgramID, req.Role, req.Feature); !ok {
		if reason != ReasonNotProgram(req.ProgramID) {
			res.State = StateProgramMatched
		}
		return res.reject(reason), nil
	}
	res.State = StateEntitled

	if req.DeviceFingerprint != "" {
		if ok, reason := CheckDeviceBinding(doc, req.DeviceFingerprint); !ok {
			return res.reject(reason), nil
		}
		res.State = StateDeviceBound
	}

	res.OK = true
	res.Reason = ReasonOK
	res.State = StateOK
	return res, nil
}

func (r VerifyResult) reject(reason string) VerifyResult {
	r.OK = false
	r.Reason = reason
	return r
}
