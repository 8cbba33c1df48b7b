// Package extension exposes the registries used to plug delivery providers
// and their associated Go types into an engine instance.
package extension
