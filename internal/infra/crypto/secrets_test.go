package crypto

import (
	"strings"
	"testing"
)

func TestGenerateAPIKeyShape(t *testing.T) {
	plaintext, prefix, hash, salt, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(plaintext, "db_"+prefix+"_") {
		t.Fatalf("plaintext %q does not embed prefix %q", plaintext, prefix)
	}
	if len(prefix) != 8 {
		t.Fatalf("unexpected prefix length %d", len(prefix))
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatal("hash and salt must be non-empty")
	}
	if strings.Contains(string(hash), plaintext) {
		t.Fatal("hash must not contain the plaintext")
	}
}

func TestSplitCredentialRoundTrip(t *testing.T) {
	plaintext, prefix, hash, salt, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	gotPrefix, secret, ok := SplitCredential(plaintext)
	if !ok {
		t.Fatalf("split failed for %q", plaintext)
	}
	if gotPrefix != prefix {
		t.Fatalf("prefix mismatch: %q vs %q", gotPrefix, prefix)
	}
	if !VerifySecret(secret, salt, hash) {
		t.Fatal("secret should verify against its own hash")
	}
	if VerifySecret(secret+"x", salt, hash) {
		t.Fatal("tampered secret must not verify")
	}
	if VerifySecret(secret, append([]byte{0}, salt...), hash) {
		t.Fatal("wrong salt must not verify")
	}
}

func TestSplitCredentialRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "db_", "db_abc", "db__secret", "db_abc_", "xx_abc_secret", "abc_secret"} {
		if _, _, ok := SplitCredential(token); ok {
			t.Fatalf("expected %q to be rejected", token)
		}
	}
}

func TestHashSecretDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	a := HashSecret("secret", salt)
	b := HashSecret("secret", salt)
	if string(a) != string(b) {
		t.Fatal("same secret and salt must hash identically")
	}
	if string(a) == string(HashSecret("secret", []byte("fedcba9876543210"))) {
		t.Fatal("different salt must change the hash")
	}
}
