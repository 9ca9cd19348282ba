/*
Package environment detects and provisions the worker's runtime dependencies.

A Probe checks that the interpreter is invocable and that each configured
library imports cleanly, one library at a time so a failure is attributed to
exactly one library. An Installer installs the missing subset in a single
package manager invocation. A Provisioner sequences the two and reports the
outcome to the host, typically in the background at startup.
*/
package environment
