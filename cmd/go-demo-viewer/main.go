// Package main provides the go-demo-viewer CLI entry point.
//
// go-demo-viewer lists numbered demo programs, runs the selected one as a
// child process and re-runs it whenever its source file changes, in the
// browser or in the terminal.
package main

import (
	"os"

	"github.com/randomizedcoder/go-demo-viewer/internal/cli"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-demo-viewer
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
