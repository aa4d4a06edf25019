package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/musterpoint/internal/app"
	"github.com/louisbranch/musterpoint/internal/gateway/local"
)

func main() {
	log.SetPrefix("[MUSTER] ")

	cfg, err := app.ParseConfig()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	gatewayCfg, err := local.ParseConfig()
	if err != nil {
		log.Fatalf("parse gateway config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway := local.New(gatewayCfg)
	service, err := app.New(cfg, app.Adapters{
		Resolver:   gateway,
		Authorizer: gateway,
		Renderer:   gateway,
		Handoff:    gateway,
		Prompter:   gateway,
	})
	if err != nil {
		log.Fatalf("assemble service: %v", err)
	}

	if err := service.Run(ctx); err != nil {
		log.Fatalf("run service: %v", err)
	}
}
