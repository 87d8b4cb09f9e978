package main

import (
	"os"

	"github.com/MeKo-Tech/ctcbeam/cmd/ctcbeam/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
