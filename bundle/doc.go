// Package bundle turns the canonical tree into one publishable artifact:
// a manifest describing every harvested file by content hash, and a zip
// archive of the whole tree with the manifest inside.
//
// The bundler is the single merge point of the run. It runs whenever a
// tree exists, including rejected and partially gathered runs, so the
// published record always carries its own diagnostics.
package bundle
