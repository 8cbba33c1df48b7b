// Package progress defines primitives for reporting and aggregating release
// counters produced by the scheduler.  It abstracts away the underlying
// communication mechanism so that callers can consume updates in a uniform
// way regardless of whether they are delivered via callbacks, channels or
// external observers.
package progress
