// Package metrics holds the one thing every package's prometheus
// collectors need to agree on: the metric namespace. Collector
// registration itself stays decentralized, package-local MustRegister
// calls in each package's own init(), the way pkg/endpoint,
// pkg/discovery/spdp, and pkg/discovery/sedp already do it — a metric's
// definition lives next to the code that increments it instead of behind
// a central registry indirection layer.
package metrics

// Namespace is the common prometheus namespace every collector in this
// module registers under.
const Namespace = "rtps"
