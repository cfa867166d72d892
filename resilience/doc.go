// Package resilience provides the bounded fixed-delay retry primitive that
// underlies every remote interaction in convoy.
//
// The delay between attempts is deliberately fixed, not exponential: the
// pipeline host's transient failures are short-lived and a run's wall-clock
// budget is bounded, so predictable spacing wins over backoff.
package resilience
