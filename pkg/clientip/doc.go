// Package clientip extracts the originating client IP from proxy headers,
// falling back to the connection's remote address. The gateway records it on
// every security event for abuse analysis.
package clientip
