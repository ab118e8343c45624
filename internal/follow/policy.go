// Package follow implements the follow-button controller and the
// follower/following list views: the stateful session-side layer that
// renders relationship tags, applies optimistic transitions on click,
// and reconciles against the authoritative follow service.
package follow

import "time"

// TrustPolicy controls how much a freshly mounted controller trusts the
// local relationship cache.
type TrustPolicy int

const (
	// TrustPolicyDistrustOnMount renders the cached tag immediately but
	// always verifies against the server before settling. Default.
	TrustPolicyDistrustOnMount TrustPolicy = iota
	// TrustPolicyTrustThenVerify settles on a cached tag without a
	// server round trip; only a cache miss triggers a fetch.
	TrustPolicyTrustThenVerify
)

// FailurePolicy controls what a controller shows after a follow or
// unfollow call fails.
type FailurePolicy int

const (
	// FailureOptimistic keeps the optimistic tag on the screen and lets
	// the delayed reconciliation read settle the truth. Default.
	FailureOptimistic FailurePolicy = iota
	// FailureStrict discards the optimistic tag and re-reads the
	// authoritative relationship immediately.
	FailureStrict
)

// ReconcileDelay is how long after a mutation the controller waits
// before re-reading the authoritative relationship.
const ReconcileDelay = 1000 * time.Millisecond
