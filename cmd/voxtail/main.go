// Package main provides the voxtail CLI.
//
// Usage:
//
//	voxtail [flags] <command> [args]
//
// Commands:
//
//	transcribe - run a transcription session
//	devices    - list audio capture devices
//	speakers   - manage persisted speaker profiles
//	config     - manage CLI configuration
//	version    - show version information
//
// Configuration:
//
//	The CLI stores configuration in the OS config directory under
//	voxtail/. Use 'voxtail config' commands to inspect and edit it.
package main

import (
	"fmt"
	"os"

	"github.com/voxtail/voxtail/cmd/voxtail/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
