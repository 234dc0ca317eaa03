package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	keyPrefixBytes = 4
	keySecretBytes = 32
	saltBytes      = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// GenerateAPIKey returns the one-time plaintext credential together with the
// pieces that get persisted: the prefix for O(1) lookup and the salted
// argon2id hash of the secret. The plaintext form is "db_<prefix>_<secret>".
func GenerateAPIKey() (plaintext, prefix string, hash, salt []byte, err error) {
	prefixRaw := make([]byte, keyPrefixBytes)
	if _, err = rand.Read(prefixRaw); err != nil {
		return "", "", nil, nil, err
	}
	secretRaw := make([]byte, keySecretBytes)
	if _, err = rand.Read(secretRaw); err != nil {
		return "", "", nil, nil, err
	}
	prefix = hex.EncodeToString(prefixRaw)
	secret := base64.RawURLEncoding.EncodeToString(secretRaw)

	salt = make([]byte, saltBytes)
	if _, err = rand.Read(salt); err != nil {
		return "", "", nil, nil, err
	}
	hash = HashSecret(secret, salt)
	return fmt.Sprintf("db_%s_%s", prefix, secret), prefix, hash, salt, nil
}

func HashSecret(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifySecret compares in constant time regardless of where the mismatch is.
func VerifySecret(secret string, salt, expectedHash []byte) bool {
	computed := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}

// SplitCredential parses "db_<prefix>_<secret>" into its lookup and secret
// parts. The format is rejected strictly: exactly three underscore-separated
// segments with the fixed scheme tag.
func SplitCredential(token string) (prefix, secret string, ok bool) {
	if len(token) < 4 || token[:3] != "db_" {
		return "", "", false
	}
	rest := token[3:]
	idx := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '_' {
			idx = i
			break
		}
	}
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
