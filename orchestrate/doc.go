// Package orchestrate drives one run end to end: fan out gatherers over
// the dependency levels, join, gate the tree, bundle it and publish to
// exactly one destination.
//
// A rejected run is still a completed run. Execute returns an error only
// when no bundle could be made durable, which is the aborted outcome.
package orchestrate
