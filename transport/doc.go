// Package transport provides the resilient HTTP client that underlies every
// remote interaction in convoy.
//
// No other package talks to the pipeline host or the durable store directly:
// host wraps this client with typed endpoints, and the publisher is the only
// component constructed with store-write capability.
//
// All calls retry up to a fixed bound with a fixed delay between attempts
// (not exponential backoff); exhaustion fails the calling stage and with it
// the run.
package transport
