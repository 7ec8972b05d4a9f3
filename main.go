package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rmoura/notara-go/cmd"
	"github.com/rmoura/notara-go/internal/conf"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	settings, err := conf.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	rootCmd := cmd.RootCommand(settings, version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
