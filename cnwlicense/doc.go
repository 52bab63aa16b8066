// Package cnwlicense verifies Ed25519-signed license documents offline and
// decides whether this program instance may run a given program, role and
// feature, optionally on this device only.
//
// Install with:
//
//	go get github.com/CloudNativeWorks/cnw-license-engine/cnwlicense
//
// # Verification
//
// AssertLicenseOK is a pure function of the license bytes, the PEM public
// key and the Requirements (including today's date). It never touches the
// network, the filesystem or a global clock:
//
//	res, err := cnwlicense.AssertLicenseOK(licenseJSON, publicKeyPEM, cnwlicense.Requirements{
//	    ProgramID: "emv",
//	    Role:      "oem_engineer",
//	    Today:     time.Now(),
//	})
//	if err != nil {
//	    // broken deployment: bad key or unparseable license
//	}
//	if !res.OK {
//	    // rejected: res.Reason is e.g. "expired_or_not_active"
//	}
//
// Checks run in a fixed order and stop at the first failure: signature,
// term, program, product enablement, offline permission, role, feature,
// device binding.
//
// # License format
//
// A license is a JSON (or YAML) object whose "signature.value" member holds
// the base64 Ed25519 signature over the RFC 8785 canonical form of the object
// without its "signature" member. See SignedBytes.
//
// # Gate
//
// For application startup checks, Gate wraps the engine with file loading
// (Config from CNW_LICENSE_* variables), device fingerprinting, structured
// logging, Prometheus metrics, tracing and an audit log:
//
//	cfg, err := cnwlicense.LoadConfig()
//	gate, err := cnwlicense.NewGate(cfg, cnwlicense.WithLogger(logger))
//	if err := gate.Enforce(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cnwlicense
