// Package publish delivers the finished bundle to exactly one of the two
// durable destinations: the primary package on accept, the quarantine
// package on reject. The run id keys the upload, so every run lands as a
// distinct version and nothing is ever overwritten.
package publish
