/*
Package domain contains the core types shared by every hanconv component.

It is free of I/O: the process runtime, filesystem and network live behind
the interfaces in package ports and their adapters.

# Key Entities

  - ActionKind: the closed set of transformations the worker understands.
  - ConversionRequest / ConversionResult: one dispatch and its outcome.
  - ConversionError: the typed failure, classified by ErrorKind.
  - LibrarySpec: an interpreter library the worker depends on.
  - ProcessOutcome: exit status and captured streams of an external process.
  - Hooks: observer callbacks for logging and metrics.
*/
package domain
