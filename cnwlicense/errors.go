package cnwlicense

import (
	"errors"
	"fmt"
)

// Configuration errors. These mean the deployment is broken (bad key file,
// unreadable license), not that the license was rejected.
var (
	// ErrPublicKeyInvalid is the KeyError: the PEM block is missing, malformed,
	// or not an Ed25519 public key.
	ErrPublicKeyInvalid = errors.New("invalid public key")
	// ErrLicenseFileInvalid is the ParseError: the license is not a JSON or YAML
	// object, or a required top-level field is missing or mistyped.
	ErrLicenseFileInvalid = errors.New("invalid license file format")
)

// Sentinel errors for rejected verdicts, one per reason family. They are
// only produced by VerifyResult.Err; AssertLicenseOK reports rejections as data.
var (
	ErrSignatureInvalid    = errors.New("signature verification failed")
	ErrLicenseExpired      = errors.New("license expired or not yet active")
	ErrProgramMismatch     = errors.New("license is for a different program")
	ErrNotEntitled         = errors.New("license does not grant the required entitlement")
	ErrDeviceNotAuthorized = errors.New("device not authorized by license")
)

// RejectedError carries a rejected VerifyResult through error-returning
// call paths. errors.Is matches the sentinel for the reason family and
// errors.As recovers the full result.
type RejectedError struct {
	Result VerifyResult
}

func (e *RejectedError) Error() string {
	if e.Result.LicenseID == "" {
		return fmt.Sprintf("license rejected: %s", e.Result.Reason)
	}
	return fmt.Sprintf("license %s rejected: %s", e.Result.LicenseID, e.Result.Reason)
}

// Unwrap returns the reason family sentinel, or nil for an unknown reason.
func (e *RejectedError) Unwrap() error {
	return sentinelFor(e.Result.Reason, e.Result.ProgramID)
}

func sentinelFor(reason, programID string) error {
	switch reason {
	case ReasonNotProgram(programID):
		return ErrProgramMismatch
	case ReasonProgramNotEnabled(programID):
		return ErrNotEntitled
	}
	switch ReasonCode(reason) {
	case ReasonBadSignature:
		return ErrSignatureInvalid
	case ReasonExpired:
		return ErrLicenseExpired
	case ReasonOfflineNotAllowed, reasonMissingRole, reasonMissingFeature:
		return ErrNotEntitled
	case ReasonDeviceNotAuthorized:
		return ErrDeviceNotAuthorized
	}
	return nil
}
