package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"daonbridge/internal/domain"
)

// VerifyPayloadSignature checks an Ed25519 signature over the canonical form
// of the request body against the broker's registered public key. The
// signature header carries the base64 standard encoding of the raw
// signature bytes.
func VerifyPayloadSignature(body []byte, signatureB64 string, pubKey []byte) error {
	if signatureB64 == "" {
		return domain.ErrSignatureRequired
	}
	// A broker without usable key material can never produce a verifiable
	// signature; that is an authorization failure, not a server fault.
	if len(pubKey) != ed25519.PublicKeySize {
		return domain.ErrSignatureInvalid
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return domain.ErrSignatureInvalid
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return domain.ErrSignatureInvalid
	}
	canonical, err := CanonicalizeJSON(body)
	if err != nil {
		return fmt.Errorf("canonicalize payload: %w", err)
	}
	if !ed25519.Verify(pubKey, canonical, sigBytes) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

// SignPayload is the counterpart used by tests and broker-side tooling.
func SignPayload(body []byte, priv ed25519.PrivateKey) (string, error) {
	canonical, err := CanonicalizeJSON(body)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, canonical)), nil
}
