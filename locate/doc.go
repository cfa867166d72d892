// Package locate finds, within a downstream unit of work, the job whose
// output should be harvested.
package locate
