// Package host provides typed access to the external pipeline host and its
// artifact transport.
//
// All reads are idempotent GETs routed through the resilient transport
// client. The host schedules and executes nodes; convoy only asks it to
// start units, awaits their completion, and harvests what they produced.
package host
