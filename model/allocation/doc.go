// Package allocation defines the allocation record tracked by the registry
// together with its lifecycle states. The types are plain data – all
// transition logic lives in service/registry.
package allocation
