// Package provider defines the delivery contract any release sink must
// satisfy.  Concrete variants live in sub-packages (console, queue, fs,
// memory) and are registered by name with the extension registry.
package provider
