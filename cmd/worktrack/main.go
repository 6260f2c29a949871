package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluetowndev/worktrack/internal/api"
	"github.com/bluetowndev/worktrack/internal/app"
	"github.com/bluetowndev/worktrack/internal/config"
	"github.com/bluetowndev/worktrack/internal/device"
	"github.com/bluetowndev/worktrack/internal/session"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client := api.New(cfg.APIBaseURL)
	store := session.NewStore()
	dev := device.FromConfig(cfg)

	a := app.New(client, store, dev, os.Stdin, os.Stdout)
	if err := a.Run(ctx); err != nil {
		log.Fatalf("worktrack: %v", err)
	}
}
