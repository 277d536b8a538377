package main

import (
	"os"

	"github.com/wonny/sas/cmd/sas/commands"
)

// main is the entry point for the SAS CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/sas [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
