// Package prometheus exports goGuard metrics through client_golang.
//
// Register a [Collector] with an existing registry, or mount
// [Collector.Handler] to serve a dedicated one.
package prometheus
