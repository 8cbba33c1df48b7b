// Package release defines the immutable event type emitted by the scheduler
// for every release attempt, together with the outcome taxonomy.
package release
