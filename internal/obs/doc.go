// Package obs wires the membership registry's Prometheus metrics; logging
// uses zap directly. It is intentionally small and nil-safe: a Metrics built with a
// nil prometheus.Registerer still works, it just doesn't register
// anything, so unit tests that don't care about metrics aren't forced to
// wire one up.
package obs
