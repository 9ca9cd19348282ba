/*
Package observability turns conversion and provisioning events into logs and
Prometheus metrics.

Both are exposed as domain.Hooks so they can be merged and handed to the
dispatcher and the provisioner:

	hooks := observability.LoggingHooks(logger).Merge(metrics.Hooks())
*/
package observability
