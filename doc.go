/*
Package hanconv converts Chinese text between Simplified and Traditional
script and translates it, by delegating each request to an external Python
worker (converter.py).

Go owns the orchestration: finding the interpreter and its libraries,
installing the missing ones, locating the worker script, spawning one worker
process per request and mapping its exit status to a typed result. The
linguistic work stays in the worker.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/hanconv"
		"github.com/aretw0/hanconv/pkg/config"
		"github.com/aretw0/hanconv/pkg/domain"
	)

	func main() {
		cfg, err := config.Load(config.DefaultFile, false)
		if err != nil {
			log.Fatal(err)
		}

		conv, err := hanconv.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer conv.Close()

		// Provisioning runs in the background and never blocks conversions.
		conv.StartProvisioning(context.Background())

		out, err := conv.Convert(context.Background(), "簡體字轉換測試", domain.ActionSimplify)
		if err != nil {
			// The message is meant for the user; keep the original text.
			log.Fatal(err)
		}
		fmt.Println(out) // 简体字转换测试
	}

# Exit status policy

A worker that exits 0 with output succeeds and its stdout is returned
verbatim. A worker that exits 0 without output fails with EmptyResult. Any
non-zero exit fails with ProcessExitedNonZero, even if stdout is not empty.
Failures carry a domain.ErrorKind and match the kind's sentinel with
errors.Is.

# Surfaces

The cmd/hanconv binary exposes the same operations as a CLI, an HTTP server
(pkg/adapters/http) and an MCP server (pkg/adapters/mcp).
*/
package hanconv
