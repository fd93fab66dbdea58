// Package quota enforces per-user plan limits on analyses and connected
// repositories.
//
// The enforcer reserves capacity with a check followed by an atomic
// counter increment. The check and the increment are separate store
// operations, so concurrent callers racing past the check can each
// overshoot the limit by at most one; the store-side increment itself is
// atomic and the counter never goes negative. Callers that fail after a
// reservation hand it back with Release, a best-effort compensating
// decrement.
package quota
