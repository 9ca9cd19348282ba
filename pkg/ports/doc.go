/*
Package ports defines the driven ports (interfaces) of hanconv.

These interfaces decouple provisioning and conversion from the host: tests
substitute scripted runtimes instead of spawning real interpreters, and
deployments choose in-memory or Redis backed caches and locks.

# Key Interfaces

  - ExternalRuntime: runs the interpreter, the package manager and the worker.
  - ResultCache: optional store of successful conversion outputs.
  - Locker: optional cross-host lock around dependency installation.
*/
package ports
