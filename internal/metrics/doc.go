// Package metrics defines the Prometheus collectors used across the
// application. All collectors are registered with the default registry via
// promauto at package load time, so importing packages can record metrics
// without any setup.
package metrics
