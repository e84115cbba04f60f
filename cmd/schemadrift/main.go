// Package main is the schemadrift command line tool.
package main

import (
	"os"

	"schemadrift/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
