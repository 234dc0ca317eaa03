package domain

import (
	"strings"
	"testing"
)

func TestComputeContentHash(t *testing.T) {
	hash := ComputeContentHash([]byte("chapter one"))
	if !strings.HasPrefix(hash, "sha256:") {
		t.Fatalf("unexpected prefix: %q", hash)
	}
	if len(hash) != 71 {
		t.Fatalf("unexpected length %d", len(hash))
	}
	if err := ValidateContentHash(hash); err != nil {
		t.Fatalf("computed hash failed validation: %v", err)
	}
	if hash != ComputeContentHash([]byte("chapter one")) {
		t.Fatal("hash is not deterministic")
	}
	if hash == ComputeContentHash([]byte("chapter two")) {
		t.Fatal("different content produced the same hash")
	}
}

func TestValidateContentHash(t *testing.T) {
	invalid := []string{
		"",
		"sha256:",
		"sha256:abc",
		"sha512:" + strings.Repeat("a", 64),
		"sha256:" + strings.Repeat("A", 64),
		"sha256:" + strings.Repeat("g", 64),
		strings.Repeat("a", 71),
		"sha256:" + strings.Repeat("a", 65),
	}
	for _, hash := range invalid {
		if err := ValidateContentHash(hash); err == nil {
			t.Fatalf("expected %q to be rejected", hash)
		}
	}
	if err := ValidateContentHash("sha256:" + strings.Repeat("0", 64)); err != nil {
		t.Fatalf("expected valid hash, got %v", err)
	}
}

func TestValidateLicense(t *testing.T) {
	for _, license := range []License{
		LicenseLiberationV1, LicenseCCBY, LicenseCCBYSA, LicenseCCBYNC,
		LicenseCCBYNCSA, LicenseAllRights, LicensePublicDomain,
	} {
		if err := ValidateLicense(license); err != nil {
			t.Fatalf("expected %q to be valid, got %v", license, err)
		}
	}
	for _, license := range []License{"", "mit", "CC_BY", "liberation_v2"} {
		if err := ValidateLicense(license); err == nil {
			t.Fatalf("expected %q to be rejected", license)
		}
	}
}
