package main

import (
	"os"

	"github.com/wonny/goldcurve/cmd/curve/commands"
)

// main is the entry point for the goldcurve CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/curve [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
