// Package main provides the wsstream CLI.
//
// Usage:
//
//	wsstream [flags] <command> [args]
//
// Commands:
//
//	listen       - Stream PCM audio to a listen endpoint and print transcripts
//	mock-server  - Run a local listen server for testing
//	config       - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.wsstream/config.yaml.
//	Use 'wsstream config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/wsstream/cmd/wsstream/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
