/*
Package conversion runs the worker for one request and maps its outcome to
a ConversionResult.

The Process owns the exit-code policy: a clean exit with output is a
success and the output is returned verbatim, a clean exit without output is
an EmptyResult failure, and any non-zero exit is a failure even when stdout
is not empty. The Dispatcher is the entry point editors call; it validates
the request, resolves the worker script and delegates to the Process.
*/
package conversion
