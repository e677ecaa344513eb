// Package forwarder delivers persisted webhooks to their provider's internal
// destination and writes the outcome back onto the event row.
//
// Delivery is detached from the inbound request: the client gets its 202 and
// the connection closes while the forwarder is still retrying. Attempts for
// one event are strictly serial; events are independent. Transient failures
// (5xx, transport errors, timeouts) back off exponentially; 4xx responses
// and malformed URLs are terminal on the first attempt.
package forwarder
