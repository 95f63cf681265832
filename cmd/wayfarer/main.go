// Package main provides the entry point for the wayfarer CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wayfarerhq/wayfarer/cmd/wayfarer/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	application, err := app.New(version, commit, date)
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := application.Execute(ctx, os.Args[1:]); err != nil {
		application.Shutdown()
		app.ExitOnError(err)
	}
	application.Shutdown()
}
