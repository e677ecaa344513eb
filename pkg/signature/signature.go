package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Compute returns the lowercase hex HMAC-SHA256 digest of payload keyed by
// secret. This is the value providers are expected to send in X-Signature.
func Compute(payload, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether receivedHex is the valid lowercase hex HMAC-SHA256
// signature of payload under secret.
//
// The received value is hex-decoded and compared against the raw digest with
// hmac.Equal, so the comparison cost depends only on the expected digest
// length, not on where the inputs diverge. Malformed hex, wrong length, and
// uppercase digests all verify as false without error.
func Verify(payload, secret []byte, receivedHex string) bool {
	received, err := hex.DecodeString(receivedHex)
	if err != nil {
		return false
	}

	// Reject uppercase digests: the wire format is lowercase hex, and
	// hex.DecodeString accepts both cases.
	for i := range receivedHex {
		if receivedHex[i] >= 'A' && receivedHex[i] <= 'F' {
			return false
		}
	}

	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), received)
}
