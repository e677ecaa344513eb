// Package replay remembers recently seen webhook request IDs so repeated
// deliveries inside the protection window can be rejected.
//
// Claims are backed by a single atomic SET NX EX roundtrip: of any number of
// concurrent claims for the same (provider, request id) pair, exactly one
// observes ResultFresh. When the backing store is unreachable the claim
// reports an error and callers must treat the request as a replay: a request
// that cannot be deduplicated is not admitted.
package replay
