// Package main starts the fair evaluation service and handles termination.
//
// The process serves the evaluator and admin JSON API and a gRPC health
// endpoint while the remote store stays the system of record.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	faircmd "github.com/louisbranch/fairscore/internal/cmd/fair"
	entrypoint "github.com/louisbranch/fairscore/internal/platform/cmd"
	"github.com/louisbranch/fairscore/internal/platform/config"
)

func main() {
	cfg, err := faircmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceFair))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := faircmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
