// Package gather downloads one node's artifact set and re-homes it,
// collision-checked, into a namespaced slot of the canonical tree.
//
// Each gatherer owns exactly one upstream dependency and writes to a
// disjoint slot, so gatherers run concurrently with no synchronization
// beyond the filesystem-level collision check.
package gather
