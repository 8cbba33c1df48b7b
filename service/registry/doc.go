// Package registry owns the allocation records and is the only component
// allowed to mutate them.  It exposes the registration and lifecycle
// operations used both by the external caller and by the scheduler.
package registry
