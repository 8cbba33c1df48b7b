// Package policy provides declarative safety caps and optional hook
// callbacks that gate every release produced by the scheduler – for example
// to bound the units admitted per tick or to require a custom predicate to
// approve selected releases.
package policy
