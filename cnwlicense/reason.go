package cnwlicense

import "strings"

// Reason codes reported in VerifyResult.Reason. The vocabulary is closed;
// parameterized codes are built with the helpers below.
const (
	ReasonOK                  = "ok"
	ReasonBadSignature        = "bad_signature"
	ReasonExpired             = "expired_or_not_active"
	ReasonOfflineNotAllowed   = "offline_not_allowed"
	ReasonDeviceNotAuthorized = "device_not_authorized"

	// Device check outcomes that let verification continue.
	ReasonNoDeviceBinding = "no_device_binding"
	ReasonDeviceOK        = "device_ok"

	reasonMissingRole    = "missing_role"
	reasonMissingFeature = "missing_feature"
)

// ReasonNotProgram is the reason for a license issued to another program,
// e.g. "not_emv".
func ReasonNotProgram(programID string) string {
	return "not_" + programID
}

// ReasonProgramNotEnabled is the reason for a disabled product entry,
// e.g. "emv_not_enabled".
func ReasonProgramNotEnabled(programID string) string {
	return programID + "_not_enabled"
}

// ReasonMissingRole returns "missing_role:<role>".
func ReasonMissingRole(role string) string {
	return reasonMissingRole + ":" + role
}

// ReasonMissingFeature returns "missing_feature:<feature>".
func ReasonMissingFeature(feature string) string {
	return reasonMissingFeature + ":" + feature
}

// ReasonCode strips the ":<param>" suffix of missing_role and
// missing_feature reasons, which keeps metric label cardinality bounded.
// Every other reason is returned unchanged, including program reasons whose
// id contains ':'.
func ReasonCode(reason string) string {
	for _, prefix := range []string{reasonMissingRole, reasonMissingFeature} {
		if strings.HasPrefix(reason, prefix+":") {
			return prefix
		}
	}
	return reason
}
