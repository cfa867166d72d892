// Package resolve maps a trigger relationship issued by the current run to
// the downstream unit of work it spawned.
package resolve
