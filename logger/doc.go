// Package logger provides structured logging for convoy built on zerolog.
//
// Every stage of a run logs through a component-tagged child logger so that
// a single run's output can be filtered by run id and stage name.
package logger
