package cnwlicense_test

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense"
	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense/licensetest"
)

func ExampleAssertLicenseOK() {
	keys, err := licensetest.NewKeyPairFromSeed(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	license, err := licensetest.SignDocument(keys.Private, licensetest.Document())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	req := cnwlicense.Requirements{
		ProgramID: "emv",
		Role:      "oem_engineer",
		Feature:   "baseline_creation",
		Today:     time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	res, err := cnwlicense.AssertLicenseOK(license, keys.PublicPEM, req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("ok=%v reason=%s license=%s\n", res.OK, res.Reason, res.LicenseID)

	req.Today = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	res, _ = cnwlicense.AssertLicenseOK(license, keys.PublicPEM, req)
	fmt.Printf("ok=%v reason=%s\n", res.OK, res.Reason)
	// Output:
	// ok=true reason=ok license=LIC-2024-0001
	// ok=false reason=expired_or_not_active
}

func ExampleCheckDeviceBinding() {
	doc := &cnwlicense.LicenseDocument{
		Bindings: &cnwlicense.Bindings{DeviceFingerprints: cnwlicense.StringSet{"abc123"}},
	}
	fmt.Println(cnwlicense.CheckDeviceBinding(doc, "xyz789"))
	fmt.Println(cnwlicense.CheckDeviceBinding(doc, "abc123"))
	fmt.Println(cnwlicense.CheckDeviceBinding(&cnwlicense.LicenseDocument{}, "xyz789"))
	// Output:
	// false device_not_authorized
	// true device_ok
	// true no_device_binding
}

func ExampleComputeDeviceFingerprint() {
	fp, err := cnwlicense.ComputeDeviceFingerprint()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Fingerprint length: %d\n", len(fp))
	// Output: Fingerprint length: 64
}

func ExampleGate_Enforce() {
	cfg := cnwlicense.Config{
		LicenseFile:   "/etc/emv/license.json",
		PublicKeyFile: "/etc/emv/license.pub",
		ProgramID:     "emv",
		Role:          "oem_engineer",
		DeviceCheck:   true,
	}
	gate, err := cnwlicense.NewGate(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := gate.Enforce(context.Background()); err != nil {
		fmt.Printf("License check failed: %v\n", err)
	}
}
