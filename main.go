package main

import (
	"embed"
	"fmt"
	"os"

	"datadesk/internal/cli"
)

//go:embed all:frontend/dist
var assets embed.FS

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, runDesktop); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
