// Package pencall provides a deterministic, inspectable engine for slow
// start resource release: registered allocations release discrete units on
// every tick following a doubling schedule, bounded by per-allocation caps
// and a configurable policy layer, and routed through a pluggable delivery
// provider.
//
// The engine comes with pluggable service layers such as:
//
//   - registry  – allocation lifecycle and state management
//   - scheduler – the per-tick doubling release pass
//   - policy    – safety caps and pre/post release hooks
//   - provider  – delivery sinks (console, queue, fs, in-memory)
//
// Pencall is designed to be embedded in host applications.  End-users
// typically interact with the engine via the high-level Service façade
// exposed by the root package:
//
//	engine := pencall.New()
//	a, _ := engine.Register(ctx, "demo", 7, 1)
//	_ = engine.Activate(ctx, a.ID)
//	events, _ := engine.AdvanceTick(ctx)
//
// For more details see the README and individual sub-packages.
package pencall
