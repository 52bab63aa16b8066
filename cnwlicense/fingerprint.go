package cnwlicense

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/elastic/go-sysinfo"
)

// FingerprintEnv overrides the computed device fingerprint when set.
const FingerprintEnv = "CNW_FINGERPRINT"

// HostFacts are the host attributes that make up a device fingerprint.
type HostFacts struct {
	OSName    string
	OSVersion string
	Release   string // kernel release
	Hostname  string
	MachineID string
}

// Fingerprint returns the SHA-256 hex digest of the joined facts.
func (h HostFacts) Fingerprint() string {
	joined := strings.Join([]string{h.OSName, h.OSVersion, h.Release, h.Hostname, h.MachineID}, "|")
	return fmt.Sprintf("%x", sha256.Sum256([]byte(joined)))
}

// ComputeDeviceFingerprint derives a best-effort identifier for this host
// from OS name and version, kernel release, hostname and machine id.
//
// It is not tamper-proof: anyone with administrative access can reproduce or
// change these values. In containers without a stable machine id, set
// CNW_FINGERPRINT to pin the value.
func ComputeDeviceFingerprint() (string, error) {
	if fp := os.Getenv(FingerprintEnv); fp != "" {
		return fp, nil
	}
	facts, err := LocalHostFacts()
	if err != nil {
		return "", err
	}
	return facts.Fingerprint(), nil
}

// LocalHostFacts reads HostFacts for the running machine.
func LocalHostFacts() (HostFacts, error) {
	host, err := sysinfo.Host()
	if err != nil {
		return HostFacts{}, fmt.Errorf("get host info: %w", err)
	}
	info := host.Info()

	facts := HostFacts{
		Release:   info.KernelVersion,
		Hostname:  info.Hostname,
		MachineID: strings.TrimSpace(info.UniqueID),
	}
	if info.OS != nil {
		facts.OSName = info.OS.Type
		facts.OSVersion = info.OS.Version
	}
	return facts, nil
}

// CheckDeviceBinding checks localFingerprint against the license allow-list.
// An absent or empty allow-list passes with ReasonNoDeviceBinding.
func CheckDeviceBinding(doc *LicenseDocument, localFingerprint string) (bool, string) {
	allowed := doc.DeviceFingerprints()
	if len(allowed) == 0 {
		return true, ReasonNoDeviceBinding
	}
	if allowed.Contains(localFingerprint) {
		return true, ReasonDeviceOK
	}
	return false, ReasonDeviceNotAuthorized
}
