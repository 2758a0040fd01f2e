// Package main is the single-binary entrypoint for ganbari.
package main

import "github.com/ganbari-quest/ganbari/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
