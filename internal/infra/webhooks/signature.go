package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	HeaderEvent      = "X-Daon-Event"
	HeaderDelivery   = "X-Daon-Delivery"
	HeaderTimestamp  = "X-Daon-Timestamp"
	HeaderSignature  = "X-Daon-Signature"
	signaturePrefix  = "sha256="

	// MaxSignatureAge bounds replay: receivers reject payloads whose
	// timestamp is older than this.
	MaxSignatureAge = 5 * time.Minute
)

func formatTimestamp(timestamp int64) string {
	return strconv.FormatInt(timestamp, 10)
}

// Sign computes the delivery signature over "{timestamp}.{body}" with the
// webhook's shared secret. This is the bit-exact contract receivers verify.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify is the receiver-side check: constant-time signature comparison plus
// a bounded staleness window.
func Verify(secret, signature, timestampHeader string, body []byte, now time.Time) bool {
	timestamp, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return false
	}
	sent := time.Unix(timestamp, 0)
	if now.Sub(sent) > MaxSignatureAge || sent.Sub(now) > MaxSignatureAge {
		return false
	}
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
