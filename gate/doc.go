// Package gate decides accept or reject for a fully gathered canonical
// tree. Evaluation is pure: rules only read the tree, never mutate it, and
// the same tree always yields the same verdict.
//
// A rejection is a normal outcome, not an error. The error return of
// Evaluate is reserved for an unreadable tree root.
package gate
