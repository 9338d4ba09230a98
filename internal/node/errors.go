package node

import "errors"

// Sentinel errors surfaced by the node bridge; the indexer's preprocessor
// classifies these into the node/network error taxonomy of §7.
var (
	// ErrWrongNetwork is returned when a freshly dialed endpoint's genesis
	// hash does not match the network this indexer is configured for
	// (§4.1 Failure).
	ErrWrongNetwork = errors.New("node: genesis hash mismatch, endpoint is on a different network")

	// ErrNodeTooFarBehind is returned when an endpoint's last finalized
	// slot time trails wall clock by more than the configured threshold
	// (§4.1 Health guards).
	ErrNodeTooFarBehind = errors.New("node: last finalized block is too far behind wall clock")

	// ErrNoHealthyEndpoint is returned when every configured endpoint has
	// exhausted its failure budget.
	ErrNoHealthyEndpoint = errors.New("node: no healthy endpoint available")

	// ErrRateLimited is returned when a call is rejected by the
	// per-connection in-flight cap rather than waited on.
	ErrRateLimited = errors.New("node: per-connection in-flight cap exceeded")
)
