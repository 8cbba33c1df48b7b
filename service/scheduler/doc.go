// Package scheduler owns the tick loop and is the only component allowed to
// drive releases through the policy gate and the delivery provider.  It is
// responsible for computing doubling candidates and reporting outcomes back
// to the registry.
package scheduler
