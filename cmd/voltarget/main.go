package main

import (
	"os"

	"github.com/wonny/voltarget/cmd/voltarget/commands"
)

// main is the entry point for the voltarget CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/voltarget [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
