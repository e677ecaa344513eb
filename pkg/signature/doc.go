// Package signature implements HMAC-SHA256 verification for inbound webhooks.
//
// Providers sign the raw request body with a shared secret and send the
// lowercase hex digest in the X-Signature header. Verification recomputes the
// digest over the exact bytes received and compares in constant time.
//
// Usage:
//
//	if !signature.Verify(body, []byte(provider.SecretKey), r.Header.Get("X-Signature")) {
//	    // reject with 401
//	}
package signature
