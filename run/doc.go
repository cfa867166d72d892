// Package run defines the immutable run context: the identity, bus target,
// and node plan of one DAG execution.
//
// A Context is constructed once at kickoff and passed by reference into
// every component; no component reads ambient or global configuration.
package run
